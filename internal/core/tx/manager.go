// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, not on a specific database.
package tx

import (
	"context"
)

// ReadOnlyManager runs read-only units of work.
//
// ReadOnly executes fn in a read-only transaction that sees a single
// snapshot of the store: every statement issued through ctx inside fn
// observes the same data. The transaction is always released when fn
// returns, whether it succeeds, fails or ctx is cancelled.
type ReadOnlyManager interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
