package http

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/superj80820/url-shortener/domain"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	httpTransportKit "github.com/superj80820/url-shortener/kit/http/transport"
)

var (
	DecodeAccountRegisterRequest  = httpTransportKit.DecodeJsonRequest[accountRegisterRequest]
	EncodeAccountRegisterResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)
)

type accountRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountRegisterResponse struct {
	*domain.Account
}

func (accountRegisterResponse) SuccessHTTPCode() int {
	return http.StatusCreated
}

func MakeAccountRegisterEndpoint(svc domain.AccountUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(accountRegisterRequest)
		account, err := svc.Register(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}
		return accountRegisterResponse{Account: account}, nil
	}
}
