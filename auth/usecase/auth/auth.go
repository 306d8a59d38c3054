package auth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	utilKit "github.com/superj80820/url-shortener/kit/util"
)

const defaultAccessTokenTTL = 30 * time.Minute

type authUseCase struct {
	authRepo    domain.AuthRepo
	accountRepo domain.AccountRepo
	clock       domain.Clock
	logger      *loggerKit.Logger

	accessTokenTTL time.Duration
}

type Option func(*authUseCase)

func SetAccessTokenTTL(accessTokenTTL time.Duration) Option {
	return func(a *authUseCase) {
		if accessTokenTTL > 0 {
			a.accessTokenTTL = accessTokenTTL
		}
	}
}

func CreateAuthUseCase(authRepo domain.AuthRepo, accountRepo domain.AccountRepo, clock domain.Clock, logger *loggerKit.Logger, options ...Option) (domain.AuthUseCase, error) {
	if authRepo == nil || accountRepo == nil || clock == nil || logger == nil {
		return nil, errors.New("create service failed")
	}
	a := &authUseCase{
		authRepo:       authRepo,
		accountRepo:    accountRepo,
		clock:          clock,
		logger:         logger,
		accessTokenTTL: defaultAccessTokenTTL,
	}
	for _, option := range options {
		option(a)
	}
	return a, nil
}

func (a *authUseCase) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := a.accountRepo.GetEmail(ctx, email)
	if errors.Is(err, domain.ErrNoData) {
		return nil, code.CreateErrorCode(http.StatusUnauthorized).AddCode(code.PasswordInvalid)
	} else if err != nil {
		return nil, errors.Wrap(err, "get db user failed")
	}

	if err := utilKit.CompareBcrypt([]byte(account.Password), []byte(password)); err != nil {
		return nil, code.CreateErrorCode(http.StatusUnauthorized).AddCode(code.PasswordInvalid)
	}

	now := a.clock()
	signedAccessToken, err := a.authRepo.GenerateToken(
		strconv.FormatInt(account.ID, 10),
		now,
		now.Add(a.accessTokenTTL),
	)
	if err != nil {
		return nil, errors.Wrap(err, "signed access token failed")
	}

	account.AccessToken = signedAccessToken
	return account, nil
}

func (a *authUseCase) Verify(ctx context.Context, accessToken string) (int64, error) {
	userID, err := a.authRepo.VerifyToken(accessToken)
	if errors.Is(err, domain.ErrExpired) {
		return 0, code.CreateErrorCode(http.StatusUnauthorized).AddCode(code.Expired).AddErrorMetaData(err)
	} else if err != nil {
		return 0, code.CreateErrorCode(http.StatusUnauthorized).AddErrorMetaData(err)
	}
	return userID, nil
}
