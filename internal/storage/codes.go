package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alheure/alheure/internal/models"
	"github.com/google/uuid"
)

func CreateActivationCode(ctx context.Context, code models.ActivationCode) error {

	_, err := DB.ExecContext(ctx, `
		INSERT INTO activation_codes (id, code, credits) VALUES ($1, $2, $3);
	`, code.ID, code.Code, code.Credits)

	return err
}

func ListActivationCodes(ctx context.Context) ([]models.ActivationCode, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT id, code, credits, used_by, used_at, created_at FROM activation_codes ORDER BY created_at DESC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []models.ActivationCode
	for rows.Next() {
		var code models.ActivationCode
		err = rows.Scan(&code.ID, &code.Code, &code.Credits, &code.UsedBy, &code.UsedAt, &code.CreatedAt)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}

// RedeemActivationCode claims a single-use code for the user and grants its
// credits, all in one transaction. The used_by IS NULL condition makes a code
// redeemable exactly once.
func RedeemActivationCode(ctx context.Context, code string, userID uuid.UUID) (int, error) {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var credits int
	err = tx.QueryRowContext(ctx, `
		UPDATE activation_codes SET used_by = $1, used_at = CURRENT_TIMESTAMP
		WHERE code = $2 AND used_by IS NULL RETURNING credits;
	`, userID, code).Scan(&credits)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCodeNotFound
		}
		return 0, err
	}

	var currentCredits int
	err = tx.QueryRowContext(ctx, `
		SELECT credits FROM profiles WHERE user_id = $1;
	`, userID).Scan(&currentCredits)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET credits = $1 WHERE user_id = $2;
	`, currentCredits+credits, userID)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}

	return credits, nil
}
