package http

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/superj80820/url-shortener/domain"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	httpTransportKit "github.com/superj80820/url-shortener/kit/http/transport"
)

var (
	DecodeAuthLoginRequest  = httpTransportKit.DecodeJsonRequest[authLoginRequest]
	EncodeAuthLoginResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)
)

type authLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func MakeAuthLoginEndpoint(svc domain.AuthUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(authLoginRequest)
		account, err := svc.Login(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}
		return &authLoginResponse{AccessToken: account.AccessToken, TokenType: "bearer"}, nil
	}
}
