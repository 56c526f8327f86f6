package postgres

import (
	"context"

	"gorm.io/gorm"
)

// Transaction executes fn within a database transaction on the current connection.
// If fn returns an error, the transaction is rolled back; otherwise, it's committed.
//
// Example usage:
//
//	err := pg.Transaction(ctx, func(tx *gorm.DB) error {
//		if err := tx.Create(&run).Error; err != nil {
//			return err
//		}
//		return tx.Create(&latest).Error
//	})
func (p *Postgres) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.DB().WithContext(ctx).Transaction(fn)
}

// lockKey serializes transactions on key until commit or rollback.
func lockKey(tx *gorm.DB, key string) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}
