package code

import (
	"crypto/rand"
	"math/big"

	goaway "github.com/TwiN/go-away"
	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var alphabetLength = big.NewInt(int64(len(alphabet)))

type codeGenerator struct {
	profanityDetector *goaway.ProfanityDetector
}

func CreateCodeGenerator() domain.CodeGenerator {
	return &codeGenerator{
		profanityDetector: goaway.NewProfanityDetector(),
	}
}

// Generate draws every character uniformly from the 62 letter alphabet. Uniqueness is the caller's job.
func (c *codeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.Errorf("invalid code length %d", length)
	}
	code := make([]byte, length)
	for i := range code {
		idx, err := rand.Int(rand.Reader, alphabetLength)
		if err != nil {
			return "", errors.Wrap(err, "read random failed")
		}
		code[i] = alphabet[idx.Int64()]
	}
	return string(code), nil
}

func (c *codeGenerator) ValidateCustom(code string) error {
	if len(code) < domain.ShortCodeMinLength || len(code) > domain.ShortCodeMaxLength {
		return errors.Wrapf(domain.ErrInvalidCode, "length %d out of range", len(code))
	}
	if !IsAlphanumeric(code) {
		return errors.Wrap(domain.ErrInvalidCode, "contains non alphanumeric character")
	}
	if c.profanityDetector.IsProfane(code) {
		return errors.Wrap(domain.ErrInvalidCode, "rejected by content filter")
	}
	return nil
}

func IsAlphanumeric(code string) bool {
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if !('a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9') {
			return false
		}
	}
	return true
}
