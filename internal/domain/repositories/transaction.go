package repositories

import "context"

// TxFn is a function executed within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager coordinates multi-repository writes. Repositories
// pick the transaction out of the context automatically, so a TxFn can
// call them as usual.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
