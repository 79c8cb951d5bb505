package repository

import "context"

// Transactor runs fn inside a single store transaction. Repositories called with
// the context passed to fn join that transaction. Nested calls reuse the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
