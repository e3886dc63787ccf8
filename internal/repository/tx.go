package repository

import "context"

// TxManager runs fn inside one database transaction. Repositories called with
// the ctx handed to fn take part in that transaction; nested calls use
// savepoints.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
