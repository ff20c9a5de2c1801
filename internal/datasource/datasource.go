// Package datasource defines how raw submission bytes are obtained.
package datasource

import (
	"context"
	"io"
)

// Source opens one physical input for a single sequential pass.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
