// Package dbctx bundles a request context with an optional GORM transaction
// so repo methods can be called either standalone or inside a caller's tx.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries a context.Context plus an optional transaction handle.
// When Tx is nil, repo implementations fall back to their own *gorm.DB.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return fallback
}
