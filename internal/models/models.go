package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

var (
	OrderPending   = "pending"
	OrderValidated = "validated"
	OrderRejected  = "rejected"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

type Profile struct {
	ID      int       `db:"id"`
	UserID  uuid.UUID `db:"user_id"`
	Credits int       `db:"credits"`
}

type CreditOrder struct {
	ID            uuid.UUID      `db:"id"`
	UserID        uuid.UUID      `db:"user_id"`
	UserEmail     string         `db:"user_email"`
	Credits       int            `db:"credits"`
	Amount        int64          `db:"amount"`
	PaymentMethod string         `db:"payment_method"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	ValidatedAt   sql.NullTime   `db:"validated_at"`
	ValidatedBy   uuid.NullUUID  `db:"validated_by"`
	Notes         sql.NullString `db:"notes"`
}

type Message struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	RecipientName string    `db:"recipient_name"`
	Content       string    `db:"content"`
	UnlockAt      time.Time `db:"unlock_at"`
	CreatedAt     time.Time `db:"created_at"`
}

type ActivationCode struct {
	ID        uuid.UUID     `db:"id"`
	Code      string        `db:"code"`
	Credits   int           `db:"credits"`
	UsedBy    uuid.NullUUID `db:"used_by"`
	UsedAt    sql.NullTime  `db:"used_at"`
	CreatedAt time.Time     `db:"created_at"`
}

// CreditPackage is one entry of the static purchase catalog. Amounts are in
// XOF and snapshotted onto the order at creation time.
type CreditPackage struct {
	ID      string `json:"id"`
	Credits int    `json:"credits"`
	Amount  int64  `json:"amount"`
}

var Packages = []CreditPackage{
	{ID: "basic", Credits: 2, Amount: 1000},
	{ID: "standard", Credits: 5, Amount: 2000},
	{ID: "premium", Credits: 20, Amount: 5000},
}

func PackageByID(id string) (CreditPackage, bool) {
	for _, pkg := range Packages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}
