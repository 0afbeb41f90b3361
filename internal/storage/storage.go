package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alheure/alheure/cmd/config"
	"github.com/alheure/alheure/internal/logger"
	"github.com/alheure/alheure/internal/models"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"
)

var (
	DB                     *sql.DB
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrCodeNotFound        = errors.New("activation code not found or already used")
)

func Init() error {
	if config.DatabaseURI == "" {
		return ErrConnectionFailed
	}

	db, err := sql.Open("pgx", config.DatabaseURI)
	if err != nil {
		logger.Log.Fatal("Error opening database connection", zap.Error(err))
		return ErrConnectionFailed
	}
	DB = db

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id SERIAL PRIMARY KEY NOT NULL,
			user_id UUID UNIQUE NOT NULL REFERENCES users(id),
			credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS credit_orders (
			id UUID PRIMARY KEY NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id),
			user_email VARCHAR(255) NOT NULL,
			credits INTEGER NOT NULL,
			amount BIGINT NOT NULL,
			payment_method VARCHAR(50) NOT NULL DEFAULT 'mobile_money',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			validated_at TIMESTAMP,
			validated_by UUID,
			notes TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id),
			recipient_name VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			unlock_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS activation_codes (
			id UUID PRIMARY KEY NOT NULL,
			code VARCHAR(32) UNIQUE NOT NULL,
			credits INTEGER NOT NULL,
			used_by UUID REFERENCES users(id),
			used_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			return ErrCreatingTableFailed
		}
	}

	return nil
}

func GetUserByEmail(ctx context.Context, email string) (models.User, error) {

	var existingUser models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, is_admin, created_at FROM users WHERE email = $1;
	`, email).Scan(&existingUser.ID, &existingUser.Email, &existingUser.PasswordHash, &existingUser.IsAdmin, &existingUser.CreatedAt)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.User{}, err
		}
	}

	return existingUser, nil
}

func GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {

	var user models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, is_admin, created_at FROM users WHERE id = $1;
	`, userID).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)

	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func CreateUser(ctx context.Context, userID string, email string, passwordHash string) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var uID string

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING id;
	`, userID, email, passwordHash).Scan(&uID)

	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id) VALUES ($1);
	`, uID)

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

func GetProfileCredits(ctx context.Context, userID uuid.UUID) (int, error) {

	var credits int

	err := DB.QueryRowContext(ctx, `
		SELECT credits FROM profiles WHERE user_id = $1;
	`, userID).Scan(&credits)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}

	return credits, nil
}
