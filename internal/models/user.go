package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Balance      decimal.Decimal
	Role         string
	AvatarURL    string
	CreatedAt    time.Time
}
