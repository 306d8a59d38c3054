package http

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/superj80820/url-shortener/domain"
	httpKit "github.com/superj80820/url-shortener/kit/http"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	httpTransportKit "github.com/superj80820/url-shortener/kit/http/transport"
)

var (
	EncodeGetClicksResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)

	DecodeGetStatsRequest  = httpTransportKit.DecodeEmptyRequest
	EncodeGetStatsResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)
)

type getClicksRequest struct {
	LinkID int64
}

func MakeGetClicksEndpoint(svc domain.ClickUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(getClicksRequest)
		clicks, err := svc.GetClicks(ctx, req.LinkID, httpKit.GetUserID(ctx))
		if err != nil {
			return nil, err
		}
		if clicks == nil {
			clicks = make([]*domain.Click, 0)
		}
		return clicks, nil
	}
}

func DecodeGetClicksRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	linkID, err := decodeIDVar(r, "link_id")
	if err != nil {
		return nil, err
	}
	return getClicksRequest{LinkID: linkID}, nil
}

func MakeGetStatsEndpoint(svc domain.StatsUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		return svc.GetStats(ctx, httpKit.GetUserID(ctx))
	}
}
