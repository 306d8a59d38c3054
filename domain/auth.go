package domain

import (
	"context"
	"time"
)

type AuthRepo interface {
	GenerateToken(sub string, iat, exp time.Time) (string, error)
	VerifyToken(token string) (userID int64, err error)
}

type AuthUseCase interface {
	Login(ctx context.Context, email, password string) (*Account, error)
	Verify(ctx context.Context, accessToken string) (int64, error)
}
