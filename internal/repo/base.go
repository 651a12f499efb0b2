package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base is embedded by the earnings repositories. It carries either the pool
// or the transaction a service opened, so the same repository code runs in
// both.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// WithTx rebinds to a caller-owned transaction. A nil tx keeps the current
// connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB binds ctx to the connection. A nil ctx returns it unchanged.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Locked is DB with SELECT ... FOR UPDATE. Balance and state transitions read
// through it so concurrent writers on the same row serialize. It only holds
// inside a transaction.
func (b Base) Locked(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}
