package engine

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/storage"
)

// ArtifactUploader pushes successfully downloaded invoice files to the
// artifact store. Upload failures are recorded per file and never undo a
// successful download.
type ArtifactUploader struct {
	store storage.ObjectStorage
	now   func() time.Time
}

func NewArtifactUploader(store storage.ObjectStorage) *ArtifactUploader {
	return &ArtifactUploader{store: store, now: time.Now}
}

// UploadResults uploads the file of every successful result under a
// date-prefixed key and returns one record per attempted upload, each tagged
// with the identifier it belongs to.
func (u *ArtifactUploader) UploadResults(ctx context.Context, results []domain.ItemResult) []domain.UploadRecord {
	date := u.now().Format("2006-01-02")

	var records []domain.UploadRecord
	for _, r := range results {
		if !r.Success || r.FilePath == "" {
			continue
		}

		fileName := filepath.Base(r.FilePath)
		record := domain.UploadRecord{
			FileName:   fileName,
			Identifier: r.Identifier,
		}

		key := "invoices/" + date + "/" + fileName
		url, err := storage.UploadFile(ctx, u.store, r.FilePath, key, "text/plain")
		if err != nil {
			logger.CtxError(ctx, "Failed to upload %s: %v", fileName, err)
			record.Error = err.Error()
		} else {
			record.Uploaded = true
			record.RemoteLink = url
		}
		records = append(records, record)
	}
	return records
}

// CorrelateUploads joins download results with upload records into the final
// per-item report rows. Records are matched by identifier first; records
// missing one fall back to file-name containment against the download path.
func CorrelateUploads(results []domain.ItemResult, uploads []domain.UploadRecord) []domain.ResultDetail {
	byIdentifier := make(map[string]*domain.UploadRecord)
	var unmatched []*domain.UploadRecord
	for i := range uploads {
		if id := uploads[i].Identifier; id != "" {
			byIdentifier[id] = &uploads[i]
		} else {
			unmatched = append(unmatched, &uploads[i])
		}
	}

	details := make([]domain.ResultDetail, 0, len(results))
	for _, r := range results {
		detail := domain.ResultDetail{
			Identifier:  r.Identifier,
			Downloaded:  r.Success,
			ErrorKind:   r.ErrorKind,
			RetriesUsed: r.RetriesUsed,
		}
		if !r.Success {
			detail.DownloadError = r.ErrorDetail
		}

		upload := byIdentifier[r.Identifier]
		if upload == nil {
			upload = matchByFileName(r.FilePath, unmatched)
		}
		if upload != nil {
			detail.Uploaded = upload.Uploaded
			detail.RemoteLink = upload.RemoteLink
		}
		details = append(details, detail)
	}
	return details
}

func matchByFileName(filePath string, uploads []*domain.UploadRecord) *domain.UploadRecord {
	if filePath == "" {
		return nil
	}
	for _, u := range uploads {
		if u.FileName != "" && strings.Contains(filePath, u.FileName) {
			return u
		}
	}
	return nil
}
