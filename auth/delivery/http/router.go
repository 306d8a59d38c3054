package http

import (
	"net/http"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/superj80820/url-shortener/domain"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
)

// CreateAuthMiddleware resolves the bearer token of a request into its user id.
func CreateAuthMiddleware(authUseCase domain.AuthUseCase) endpoint.Middleware {
	return httpMiddlewareKit.CreateAuthMiddleware(authUseCase.Verify)
}

func RegisterRoutes(
	r *mux.Router,
	accountUseCase domain.AccountUseCase,
	authUseCase domain.AuthUseCase,
	endpointMiddleware func(name string) endpoint.Middleware,
	options ...httptransport.ServerOption,
) {
	wrap := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		if endpointMiddleware == nil {
			return e
		}
		return endpointMiddleware(name)(e)
	}

	r.Methods(http.MethodPost).Path("/auth/register").Handler(httptransport.NewServer(
		wrap("account_register", MakeAccountRegisterEndpoint(accountUseCase)),
		DecodeAccountRegisterRequest,
		EncodeAccountRegisterResponse,
		options...,
	))
	r.Methods(http.MethodPost).Path("/auth/login").Handler(httptransport.NewServer(
		wrap("auth_login", MakeAuthLoginEndpoint(authUseCase)),
		DecodeAuthLoginRequest,
		EncodeAuthLoginResponse,
		options...,
	))
}
