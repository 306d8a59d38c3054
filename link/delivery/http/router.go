package http

import (
	"net/http"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/superj80820/url-shortener/domain"
)

type UseCases struct {
	Link     domain.LinkUseCase
	Resolver domain.ResolverUseCase
	Click    domain.ClickUseCase
	Stats    domain.StatsUseCase
}

// EndpointMiddleware builds the shared middleware of one named endpoint, e.g. logging and metrics.
type EndpointMiddleware func(name string) endpoint.Middleware

func noopEndpointMiddleware(string) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint { return next }
}

// RegisterRoutes mounts the link API on r. The redirect route is mounted last so it never
// shadows the fixed paths.
func RegisterRoutes(
	r *mux.Router,
	useCases *UseCases,
	authMiddleware endpoint.Middleware,
	endpointMiddleware EndpointMiddleware,
	options ...httptransport.ServerOption,
) {
	if endpointMiddleware == nil {
		endpointMiddleware = noopEndpointMiddleware
	}
	errorTranslation := CreateErrorTranslationMiddleware()
	public := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		return endpoint.Chain(endpointMiddleware(name), errorTranslation)(e)
	}
	protected := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		return endpoint.Chain(endpointMiddleware(name), authMiddleware, errorTranslation)(e)
	}

	r.Methods(http.MethodGet).Path("/health").Handler(httptransport.NewServer(
		public("health", MakeHealthEndpoint()),
		DecodeHealthRequest,
		EncodeHealthResponse,
		options...,
	))

	r.Methods(http.MethodPost).Path("/links").Handler(httptransport.NewServer(
		protected("create_link", MakeCreateLinkEndpoint(useCases.Link)),
		DecodeCreateLinkRequest,
		EncodeCreateLinkResponse,
		options...,
	))
	r.Methods(http.MethodGet).Path("/links").Handler(httptransport.NewServer(
		protected("get_links", MakeGetLinksEndpoint(useCases.Link)),
		DecodeGetLinksRequest,
		EncodeGetLinksResponse,
		options...,
	))
	r.Methods(http.MethodPatch).Path("/links/{link_id:[0-9]+}").Handler(httptransport.NewServer(
		protected("update_link", MakeUpdateLinkEndpoint(useCases.Link)),
		DecodeUpdateLinkRequest,
		EncodeUpdateLinkResponse,
		options...,
	))
	r.Methods(http.MethodDelete).Path("/links/{link_id:[0-9]+}").Handler(httptransport.NewServer(
		protected("delete_link", MakeDeleteLinkEndpoint(useCases.Link)),
		DecodeDeleteLinkRequest,
		EncodeDeleteLinkResponse,
		options...,
	))

	r.Methods(http.MethodGet).Path("/clicks/stats").Handler(httptransport.NewServer(
		protected("get_stats", MakeGetStatsEndpoint(useCases.Stats)),
		DecodeGetStatsRequest,
		EncodeGetStatsResponse,
		options...,
	))
	r.Methods(http.MethodGet).Path("/clicks/{link_id:[0-9]+}").Handler(httptransport.NewServer(
		protected("get_clicks", MakeGetClicksEndpoint(useCases.Click)),
		DecodeGetClicksRequest,
		EncodeGetClicksResponse,
		options...,
	))

	r.Methods(http.MethodGet).Path("/{short_code}").Handler(httptransport.NewServer(
		public("redirect", MakeRedirectEndpoint(useCases.Resolver)),
		DecodeRedirectRequest,
		EncodeRedirectResponse,
		options...,
	))
}
