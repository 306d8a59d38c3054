package domain

import (
	"context"
	"time"
)

type Account struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`

	AccessToken string `gorm:"-" json:"access_token,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

type AccountRepo interface {
	Create(ctx context.Context, email, password string) (*Account, error)
	Get(ctx context.Context, userID int64) (*Account, error)
	GetEmail(ctx context.Context, email string) (*Account, error)
}

type AccountUseCase interface {
	Register(ctx context.Context, email, password string) (*Account, error)
	Get(ctx context.Context, userID int64) (*Account, error)
}
