package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	accountORMRepo "github.com/superj80820/url-shortener/auth/repository/account/orm"
	authJWTRepo "github.com/superj80820/url-shortener/auth/repository/auth/jwt"
	"github.com/superj80820/url-shortener/auth/usecase/account"
	"github.com/superj80820/url-shortener/auth/usecase/auth"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	ormKit "github.com/superj80820/url-shortener/kit/orm"
)

func TestUseCase(t *testing.T) {
	ctx := context.Background()
	email := "user@example.com"
	password := "password123"
	logger := loggerKit.NewNoopLogger()

	ormDB, err := ormKit.CreateDB(ormKit.UseSQLite("file:auth_usecase?mode=memory&cache=shared"))
	require.Nil(t, err)
	defer ormDB.Close()
	require.Nil(t, accountORMRepo.Migrate(ormDB))

	key, err := authJWTRepo.LoadOrGenerateKey("")
	require.Nil(t, err)
	authRepo, err := authJWTRepo.CreateAuthRepo(key)
	require.Nil(t, err)
	accountRepo := accountORMRepo.CreateAccountRepo(ormDB)

	now := time.Now()
	clock := func() time.Time { return now }
	authUseCase, err := auth.CreateAuthUseCase(authRepo, accountRepo, clock, logger, auth.SetAccessTokenTTL(time.Hour))
	require.Nil(t, err)
	accountUseCase, err := account.CreateAccountUseCase(accountRepo, logger)
	require.Nil(t, err)

	httpCodeOf := func(err error) int {
		return code.ParseErrorCode(err).GeneralCode
	}

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test register login then verify",
			fn: func(t *testing.T) {
				userInfo, err := accountUseCase.Register(ctx, email, password)
				require.Nil(t, err)
				assert.NotEqual(t, password, userInfo.Password)

				accountResult, err := authUseCase.Login(ctx, email, password)
				require.Nil(t, err)
				require.NotEmpty(t, accountResult.AccessToken)

				userID, err := authUseCase.Verify(ctx, accountResult.AccessToken)
				require.Nil(t, err)
				assert.Equal(t, userInfo.ID, userID)

				stored, err := accountUseCase.Get(ctx, userID)
				require.Nil(t, err)
				assert.Equal(t, email, stored.Email)
			},
		},
		{
			scenario: "test register twice conflicts",
			fn: func(t *testing.T) {
				_, err := accountUseCase.Register(ctx, "twice@example.com", password)
				require.Nil(t, err)
				_, err = accountUseCase.Register(ctx, "twice@example.com", password)
				assert.Equal(t, http.StatusConflict, httpCodeOf(err))
				assert.Equal(t, code.EmailRegistered, code.ParseErrorCode(err).Code)
			},
		},
		{
			scenario: "test register validates input",
			fn: func(t *testing.T) {
				_, err := accountUseCase.Register(ctx, "no-at-sign", password)
				assert.Equal(t, http.StatusBadRequest, httpCodeOf(err))
				_, err = accountUseCase.Register(ctx, "short@example.com", "short")
				assert.Equal(t, http.StatusBadRequest, httpCodeOf(err))
			},
		},
		{
			scenario: "test login with wrong password or unknown email",
			fn: func(t *testing.T) {
				_, err := authUseCase.Login(ctx, email, "wrong-password")
				assert.Equal(t, http.StatusUnauthorized, httpCodeOf(err))
				_, err = authUseCase.Login(ctx, "nobody@example.com", password)
				assert.Equal(t, http.StatusUnauthorized, httpCodeOf(err))
			},
		},
		{
			scenario: "test verify rejects bad and expired tokens",
			fn: func(t *testing.T) {
				_, err := authUseCase.Verify(ctx, "garbage")
				assert.Equal(t, http.StatusUnauthorized, httpCodeOf(err))

				expiredToken, err := authRepo.GenerateToken("1", now.Add(-2*time.Hour), now.Add(-time.Hour))
				require.Nil(t, err)
				_, err = authUseCase.Verify(ctx, expiredToken)
				assert.Equal(t, http.StatusUnauthorized, httpCodeOf(err))
				assert.Equal(t, code.Expired, code.ParseErrorCode(err).Code)
			},
		},
		{
			scenario: "test get unknown account",
			fn: func(t *testing.T) {
				_, err := accountUseCase.Get(ctx, 42)
				assert.ErrorIs(t, err, domain.ErrNoData)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
