// Package codes implements the verification-code service: issuing send-code
// events and validating presented codes against the stored records.
package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/dbx"
)

// PostgresRepository persists verification codes in the verification_codes
// table, keyed by normalized phone.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, normalizedPhone string) (*VerificationCode, error) {
	query := `
		SELECT normalized_phone, code, expire_epoch
		FROM verification_codes
		WHERE normalized_phone = $1
	`
	vc := &VerificationCode{}
	if err := r.db.QueryRowContext(ctx, query, normalizedPhone).
		Scan(&vc.NormalizedPhone, &vc.Code, &vc.ExpireEpoch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vc, nil
}

// Save replaces the phone's previous code, if any, in one transaction so a
// reader never observes two active codes for the same phone.
func (r *PostgresRepository) Save(ctx context.Context, code *VerificationCode) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM verification_codes
			WHERE normalized_phone = $1
		`, code.NormalizedPhone); err != nil {
			return fmt.Errorf("error performing sql request: %v", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verification_codes (normalized_phone, code, expire_epoch)
			VALUES ($1, $2, $3)
		`, code.NormalizedPhone, code.Code, code.ExpireEpoch); err != nil {
			return fmt.Errorf("error performing sql request: %v", err)
		}
		return nil
	})
}
