package account

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 72 // bcrypt input limit
	emailMaxLength    = 255
)

type accountUseCase struct {
	accountRepo domain.AccountRepo
	logger      *loggerKit.Logger
}

func CreateAccountUseCase(accountRepo domain.AccountRepo, logger *loggerKit.Logger) (domain.AccountUseCase, error) {
	if accountRepo == nil || logger == nil {
		return nil, errors.New("create service failed")
	}
	return &accountUseCase{
		accountRepo: accountRepo,
		logger:      logger,
	}, nil
}

func (a *accountUseCase) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if len(email) > emailMaxLength || strings.Count(email, "@") != 1 || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, code.CreateErrorCode(http.StatusBadRequest).AddErrorMetaData(errors.Wrap(domain.ErrInvalidData, "invalid email"))
	}
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return nil, code.CreateErrorCode(http.StatusBadRequest).AddErrorMetaData(errors.Wrap(domain.ErrInvalidData, "invalid password length"))
	}

	account, err := a.accountRepo.Create(ctx, email, password)
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, code.CreateErrorCode(http.StatusConflict).AddCode(code.EmailRegistered).AddErrorMetaData(err)
	} else if err != nil {
		return nil, errors.Wrap(err, "create to db user failed")
	}
	return account, nil
}

func (a *accountUseCase) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	account, err := a.accountRepo.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get account failed")
	}
	return account, nil
}
