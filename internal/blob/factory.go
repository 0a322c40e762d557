package blob

import (
	"context"
	"fmt"

	infraS3 "agritrack/internal/infra/blob/s3"
)

// Options selects and parameterizes a blob backend. Callers typically fill it
// from configuration; zero value means filesystem under ./blobdata.
type Options struct {
	Driver Driver
	FSRoot string
	S3     infraS3.Config
}

// Open constructs the blob store selected by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.FSRoot)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
