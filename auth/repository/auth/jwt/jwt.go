package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
)

type authRepo struct {
	accessTokenKey *ecdsa.PrivateKey
}

func CreateAuthRepo(accessTokenKey *ecdsa.PrivateKey) (domain.AuthRepo, error) {
	if accessTokenKey == nil {
		return nil, errors.New("access token key is required")
	}
	return &authRepo{
		accessTokenKey: accessTokenKey,
	}, nil
}

// LoadOrGenerateKey reads a PEM EC private key from path. An empty path generates an
// ephemeral P-256 key, so tokens do not survive a restart.
func LoadOrGenerateKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "generate key failed")
		}
		return key, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file failed")
	}
	return ParsePemKey(data)
}

func ParsePemKey(data []byte) (*ecdsa.PrivateKey, error) {
	blk, _ := pem.Decode(data)
	if blk == nil {
		return nil, errors.New("no pem block found")
	}
	key, err := x509.ParseECPrivateKey(blk.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key failed")
	}
	return key, nil
}

func (a *authRepo) GenerateToken(sub string, iat, exp time.Time) (string, error) {
	accessToken := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signedToken, err := accessToken.SignedString(a.accessTokenKey)
	if err != nil {
		return "", errors.Wrap(err, "signed access token failed")
	}
	return signedToken, nil
}

func (a *authRepo) VerifyToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		return &a.accessTokenKey.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return 0, errors.Wrapf(domain.ErrExpired, "%+v", err)
	} else if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalidData, "%+v", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalidData, "parse subject failed, error: %v", err)
	}
	return userID, nil
}
