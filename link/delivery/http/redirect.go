package http

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
	httpKit "github.com/superj80820/url-shortener/kit/http"
)

type redirectRequest struct {
	ShortCode string
}

type redirectResponse struct {
	URL string
}

func MakeRedirectEndpoint(svc domain.ResolverUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(redirectRequest)
		target, err := svc.Resolve(ctx, req.ShortCode, &domain.ClickMetadata{
			Referrer:  httpKit.GetReferrer(ctx),
			UserAgent: httpKit.GetUserAgent(ctx),
			IPAddress: httpKit.GetIP(ctx),
		})
		if err != nil {
			return nil, err
		}
		return redirectResponse{URL: target}, nil
	}
}

func DecodeRedirectRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	shortCode, ok := mux.Vars(r)["short_code"]
	if !ok || shortCode == "" {
		return nil, code.CreateErrorCode(http.StatusNotFound).AddCode(code.LinkNotFound).AddErrorMetaData(errors.New("get short code failed"))
	}
	return redirectRequest{ShortCode: shortCode}, nil
}

func EncodeRedirectResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	httpKit.CustomAfterCtx(ctx, w)
	res := response.(redirectResponse)
	w.Header().Set("Location", res.URL)
	w.WriteHeader(http.StatusFound)
	return nil
}
