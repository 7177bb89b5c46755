package photostore

import (
	"context"
	"io"
)

// PhotoStore persists uploaded meal photos. Path exposes a filesystem
// location for the stored photo, which the detection engine reads when
// building the initial inference request.
type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Path(storageKey string) (string, error)
	Delete(ctx context.Context, storageKey string) error
}
