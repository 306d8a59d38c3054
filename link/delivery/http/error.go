package http

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
)

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNoData), errors.Is(err, domain.ErrExpired):
		return code.CreateErrorCode(http.StatusNotFound).AddCode(code.LinkNotFound).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrForbidden):
		return code.CreateErrorCode(http.StatusForbidden).AddCode(code.NotLinkOwner).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrInvalidCode):
		return code.CreateErrorCode(http.StatusBadRequest).AddCode(code.InvalidCustomCode).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrInvalidURL):
		return code.CreateErrorCode(http.StatusBadRequest).AddCode(code.InvalidURL).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrInvalidData):
		return code.CreateErrorCode(http.StatusBadRequest).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrCodeConflict), errors.Is(err, domain.ErrDuplicate):
		return code.CreateErrorCode(http.StatusConflict).AddCode(code.CodeConflict).AddErrorMetaData(err)
	case errors.Is(err, domain.ErrGenerationExhausted):
		return code.CreateErrorCode(http.StatusInternalServerError).AddCode(code.GenerationExhausted).AddErrorMetaData(err)
	}
	return err
}

// CreateErrorTranslationMiddleware turns domain errors into error codes. Errors that already
// carry a code pass through unchanged.
func CreateErrorTranslationMiddleware() endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			response, err := next(ctx, request)
			if err != nil {
				return nil, translateError(err)
			}
			return response, nil
		}
	}
}
