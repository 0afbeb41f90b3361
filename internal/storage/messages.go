package storage

import (
	"context"

	"github.com/alheure/alheure/internal/models"
	"github.com/google/uuid"
)

// CreateMessage inserts the message and spends one credit in the same
// transaction. The credits >= 1 condition keeps the balance non-negative
// under concurrent creations.
func CreateMessage(ctx context.Context, message models.Message) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE profiles SET credits = credits - 1 WHERE user_id = $1 AND credits >= 1;
	`, message.UserID)
	if err != nil {
		tx.Rollback()
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return ErrInsufficientCredits
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, recipient_name, content, unlock_at)
		VALUES ($1, $2, $3, $4, $5);
	`, message.ID, message.UserID, message.RecipientName, message.Content, message.UnlockAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

func GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {

	var message models.Message

	err := DB.QueryRowContext(ctx, `
		SELECT id, user_id, recipient_name, content, unlock_at, created_at FROM messages WHERE id = $1;
	`, messageID).Scan(&message.ID, &message.UserID, &message.RecipientName, &message.Content, &message.UnlockAt, &message.CreatedAt)

	if err != nil {
		return models.Message{}, err
	}

	return message, nil
}
