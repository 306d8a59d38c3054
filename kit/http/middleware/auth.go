package middleware

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/superj80820/url-shortener/kit/code"
	httpKit "github.com/superj80820/url-shortener/kit/http"
)

func CreateAuthMiddleware(authFunc func(ctx context.Context, token string) (userID int64, err error)) endpoint.Middleware {
	return func(e endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			token := httpKit.GetToken(ctx)
			if token == "" {
				return nil, code.CreateErrorCode(http.StatusUnauthorized)
			}
			userID, err := authFunc(ctx, token)
			if err != nil {
				return nil, err
			}
			return e(httpKit.AddUserID(ctx, userID), request)
		}
	}
}
