package ports

import "context"

// Tx is an opaque transaction handle owned by the persistence adapter
// (a *gorm.DB for the sqlite store).
type Tx interface{}

// UnitOfWork runs fn in one transaction: a returned error rolls back,
// nil commits. Store calls made with the ctx passed to fn join it.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
