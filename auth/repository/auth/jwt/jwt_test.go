package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superj80820/url-shortener/domain"
)

func TestAuthRepo(t *testing.T) {
	key, err := LoadOrGenerateKey("")
	require.Nil(t, err)
	authRepo, err := CreateAuthRepo(key)
	require.Nil(t, err)

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test generate then verify token",
			fn: func(t *testing.T) {
				now := time.Now()
				token, err := authRepo.GenerateToken("1234567890", now, now.Add(time.Hour))
				require.Nil(t, err)

				userID, err := authRepo.VerifyToken(token)
				require.Nil(t, err)
				assert.Equal(t, int64(1234567890), userID)
			},
		},
		{
			scenario: "test expired token",
			fn: func(t *testing.T) {
				now := time.Now()
				token, err := authRepo.GenerateToken("1", now.Add(-2*time.Hour), now.Add(-time.Hour))
				require.Nil(t, err)

				_, err = authRepo.VerifyToken(token)
				assert.ErrorIs(t, err, domain.ErrExpired)
			},
		},
		{
			scenario: "test token of another key is invalid",
			fn: func(t *testing.T) {
				otherKey, err := LoadOrGenerateKey("")
				require.Nil(t, err)
				otherRepo, err := CreateAuthRepo(otherKey)
				require.Nil(t, err)
				now := time.Now()
				token, err := otherRepo.GenerateToken("1", now, now.Add(time.Hour))
				require.Nil(t, err)

				_, err = authRepo.VerifyToken(token)
				assert.ErrorIs(t, err, domain.ErrInvalidData)
			},
		},
		{
			scenario: "test malformed token and non numeric subject",
			fn: func(t *testing.T) {
				_, err := authRepo.VerifyToken("not.a.token")
				assert.ErrorIs(t, err, domain.ErrInvalidData)

				now := time.Now()
				token, err := authRepo.GenerateToken("alice", now, now.Add(time.Hour))
				require.Nil(t, err)
				_, err = authRepo.VerifyToken(token)
				assert.ErrorIs(t, err, domain.ErrInvalidData)
			},
		},
		{
			scenario: "test load pem key from file",
			fn: func(t *testing.T) {
				privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.Nil(t, err)
				der, err := x509.MarshalECPrivateKey(privateKey)
				require.Nil(t, err)
				path := filepath.Join(t.TempDir(), "access-private-key.pem")
				require.Nil(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600))

				loaded, err := LoadOrGenerateKey(path)
				require.Nil(t, err)
				assert.True(t, privateKey.Equal(loaded))

				_, err = ParsePemKey([]byte("garbage"))
				assert.NotNil(t, err)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
