package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/kit/code"
	httpKit "github.com/superj80820/url-shortener/kit/http"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	httpTransportKit "github.com/superj80820/url-shortener/kit/http/transport"
)

var (
	DecodeCreateLinkRequest  = httpTransportKit.DecodeJsonRequest[createLinkRequest]
	EncodeCreateLinkResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)

	DecodeGetLinksRequest  = httpTransportKit.DecodeEmptyRequest
	EncodeGetLinksResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)

	EncodeUpdateLinkResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)

	EncodeDeleteLinkResponse = httpMiddlewareKit.EncodeResponseSetSuccessHTTPCode(httpTransportKit.EncodeJsonResponse)
)

type createLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	CustomCode  *string    `json:"custom_code"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type createLinkResponse struct {
	*domain.Link
}

func (createLinkResponse) SuccessHTTPCode() int {
	return http.StatusCreated
}

type updateLinkRequest struct {
	LinkID int64
	Update *domain.LinkUpdate
}

type deleteLinkRequest struct {
	LinkID int64
}

func MakeCreateLinkEndpoint(svc domain.LinkUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(createLinkRequest)
		linkCreate := &domain.LinkCreate{
			OriginalURL: req.OriginalURL,
			ExpiresAt:   req.ExpiresAt,
		}
		if req.CustomCode != nil {
			if *req.CustomCode == "" {
				return nil, errors.Wrap(domain.ErrInvalidCode, "empty custom code")
			}
			linkCreate.CustomCode = *req.CustomCode
		}
		link, err := svc.Create(ctx, httpKit.GetUserID(ctx), linkCreate)
		if err != nil {
			return nil, err
		}
		return createLinkResponse{Link: link}, nil
	}
}

func MakeGetLinksEndpoint(svc domain.LinkUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		links, err := svc.GetByOwner(ctx, httpKit.GetUserID(ctx))
		if err != nil {
			return nil, err
		}
		if links == nil {
			links = make([]*domain.Link, 0)
		}
		return links, nil
	}
}

func MakeUpdateLinkEndpoint(svc domain.LinkUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(updateLinkRequest)
		link, err := svc.Update(ctx, req.LinkID, httpKit.GetUserID(ctx), req.Update)
		if err != nil {
			return nil, err
		}
		return link, nil
	}
}

func MakeDeleteLinkEndpoint(svc domain.LinkUseCase) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(deleteLinkRequest)
		if err := svc.Delete(ctx, req.LinkID, httpKit.GetUserID(ctx)); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func decodeIDVar(r *http.Request, name string) (int64, error) {
	idString, ok := mux.Vars(r)[name]
	if !ok {
		return 0, code.CreateErrorCode(http.StatusBadRequest).AddErrorMetaData(errors.Errorf("get %s failed", name))
	}
	id, err := strconv.ParseInt(idString, 10, 64)
	if err != nil {
		return 0, code.CreateErrorCode(http.StatusBadRequest).AddErrorMetaData(errors.Wrapf(err, "parse %s failed", name))
	}
	return id, nil
}

// DecodeUpdateLinkRequest tells an explicit "expires_at": null, which removes the expiry,
// apart from an absent field.
func DecodeUpdateLinkRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	linkID, err := decodeIDVar(r, "link_id")
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, code.CreateErrorCode(http.StatusBadRequest).AddCode(code.InvalidBody).AddErrorMetaData(err)
	}

	var update domain.LinkUpdate
	if raw, ok := fields["original_url"]; ok && string(raw) != "null" {
		var originalURL string
		if err := json.Unmarshal(raw, &originalURL); err != nil {
			return nil, code.CreateErrorCode(http.StatusBadRequest).AddCode(code.InvalidBody).AddErrorMetaData(err)
		}
		update.OriginalURL = &originalURL
	}
	if raw, ok := fields["expires_at"]; ok {
		if string(raw) == "null" {
			update.ClearExpiresAt = true
		} else {
			var expiresAt time.Time
			if err := json.Unmarshal(raw, &expiresAt); err != nil {
				return nil, code.CreateErrorCode(http.StatusBadRequest).AddCode(code.InvalidBody).AddErrorMetaData(err)
			}
			update.ExpiresAt = &expiresAt
		}
	}

	return updateLinkRequest{LinkID: linkID, Update: &update}, nil
}

func DecodeDeleteLinkRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	linkID, err := decodeIDVar(r, "link_id")
	if err != nil {
		return nil, err
	}
	return deleteLinkRequest{LinkID: linkID}, nil
}
