package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// UploadFile uploads a local file under the given key and returns its public
// URL.
func UploadFile(ctx context.Context, s ObjectStorage, localPath, key, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	if err := s.Upload(ctx, key, f, info.Size(), contentType); err != nil {
		return "", err
	}
	return s.GetURL(key), nil
}

// UploadJSON marshals v with indentation and uploads it under the given key.
func UploadJSON(ctx context.Context, s ObjectStorage, key string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return UploadString(ctx, s, string(data), key, "application/json")
}

// UploadString uploads an in-memory payload under the given key and returns
// its public URL.
func UploadString(ctx context.Context, s ObjectStorage, content, key, contentType string) (string, error) {
	r := strings.NewReader(content)
	if err := s.Upload(ctx, key, r, int64(len(content)), contentType); err != nil {
		return "", err
	}
	return s.GetURL(key), nil
}
