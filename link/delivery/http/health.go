package http

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	httpTransportKit "github.com/superj80820/url-shortener/kit/http/transport"
)

var (
	DecodeHealthRequest  = httpTransportKit.DecodeEmptyRequest
	EncodeHealthResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)
)

type healthResponse struct {
	Status string `json:"status"`
}

func MakeHealthEndpoint() endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		return healthResponse{Status: "ok"}, nil
	}
}
