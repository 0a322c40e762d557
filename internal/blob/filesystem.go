package blob

import (
	"agritrack/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the given
// path. The return type is the interface so call sites never depend on the
// concrete implementation.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
