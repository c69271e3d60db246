package source

import (
	"io"

	"github.com/lromero/facturabot/internal/domain"
)

// Reader parses an uploaded worksheet into work items. Implementations keep
// rows in worksheet order and never deduplicate identifiers.
type Reader interface {
	// Read parses the file at path.
	Read(path string) ([]domain.WorkItem, error)

	// ReadFrom parses an in-memory upload.
	ReadFrom(r io.Reader) ([]domain.WorkItem, error)
}
