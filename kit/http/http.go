package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/superj80820/url-shortener/kit/code"
	utilKit "github.com/superj80820/url-shortener/kit/util"
	"go.opentelemetry.io/otel/trace"
)

type ctxKeyType int

const (
	_CTX_IP_KEY ctxKeyType = iota
	_CTX_HOST
	_CTX_URL_PATH
	_CTX_METHOD
	_CTX_TRACE_ID
	_CTX_TOKEN
	_CTX_REQUEST_ID
	_CTX_USER_ID
	_CTX_REFERRER
	_CTX_USER_AGENT
)

// ReadUserIP returns the client address. Proxy headers are read only when
// trustProxy is set, otherwise any client could choose its own address.
func ReadUserIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
			return ip
		}
		if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
			if ip := strings.TrimSpace(strings.Split(forwardedFor, ",")[0]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type beforeCtxConfig struct {
	trustProxy bool
}

type BeforeCtxOption func(*beforeCtxConfig)

// TrustProxyHeaders reads the client address from X-Real-Ip or X-Forwarded-For.
// Use it only behind a proxy that overwrites those headers.
func TrustProxyHeaders(trust bool) BeforeCtxOption {
	return func(c *beforeCtxConfig) {
		c.trustProxy = trust
	}
}

func readBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if len(authorization) > 7 && strings.EqualFold(authorization[:7], "bearer ") {
		return strings.TrimSpace(authorization[7:])
	}
	return ""
}

func CustomBeforeCtx(tracer trace.Tracer, options ...BeforeCtxOption) func(ctx context.Context, r *http.Request) context.Context {
	var config beforeCtxConfig
	for _, option := range options {
		option(&config)
	}

	return func(ctx context.Context, r *http.Request) context.Context {
		ctx = context.WithValue(ctx, _CTX_TOKEN, readBearerToken(r))
		ctx = context.WithValue(ctx, _CTX_HOST, r.Host)
		ctx = context.WithValue(ctx, _CTX_URL_PATH, r.URL.Path)
		ctx = context.WithValue(ctx, _CTX_METHOD, r.Method)
		ctx = context.WithValue(ctx, _CTX_IP_KEY, ReadUserIP(r, config.trustProxy))
		ctx = context.WithValue(ctx, _CTX_REFERRER, r.Referer())
		ctx = context.WithValue(ctx, _CTX_USER_AGENT, r.UserAgent())
		ctx = AddRequestID(ctx)

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		ctx = AddTraceID(ctx, span.SpanContext().TraceID().String())

		return ctx
	}
}

// CustomFinalizer ends the span opened by CustomBeforeCtx.
func CustomFinalizer(ctx context.Context, code int, r *http.Request) {
	trace.SpanFromContext(ctx).End()
}

func CustomAfterCtx(ctx context.Context, w http.ResponseWriter) context.Context {
	w.Header().Set("X-Request-Id", GetRequestID(ctx))
	if traceID := GetTraceID(ctx); traceID != "" {
		w.Header().Set("X-B3-TraceId", traceID)
	}
	return ctx
}

func getString(ctx context.Context, key ctxKeyType) string {
	value, _ := ctx.Value(key).(string)
	return value
}

func GetTraceID(ctx context.Context) string {
	return getString(ctx, _CTX_TRACE_ID)
}

func AddTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, _CTX_TRACE_ID, traceID)
}

func GetIP(ctx context.Context) string {
	return getString(ctx, _CTX_IP_KEY)
}

func GetURL(ctx context.Context) string {
	return getString(ctx, _CTX_URL_PATH)
}

func GetMethod(ctx context.Context) string {
	return getString(ctx, _CTX_METHOD)
}

func GetReferrer(ctx context.Context) string {
	return getString(ctx, _CTX_REFERRER)
}

func GetUserAgent(ctx context.Context) string {
	return getString(ctx, _CTX_USER_AGENT)
}

func AddUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, _CTX_USER_ID, userID)
}

// GetUserID returns 0 when the request was not authenticated.
func GetUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(_CTX_USER_ID).(int64)
	return userID
}

func AddToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, _CTX_TOKEN, token)
}

func GetToken(ctx context.Context) string {
	return getString(ctx, _CTX_TOKEN)
}

func AddRequestID(ctx context.Context) context.Context {
	uniqueIDGenerate, err := utilKit.GetUniqueIDGenerate()
	if err != nil {
		return ctx
	}
	return context.WithValue(ctx, _CTX_REQUEST_ID, uniqueIDGenerate.Generate().GetBase62())
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, _CTX_REQUEST_ID)
}

func EncodeHTTPErrorResponse() func(ctx context.Context, err error, w http.ResponseWriter) {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if err == nil {
			panic("encodeError with nil error")
		}

		ctx = CustomAfterCtx(ctx, w)

		errorCode := code.CreateHTTPError(code.ParseErrorCode(err))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(errorCode.HTTPCode)
		json.NewEncoder(w).Encode(errorCode)
	}
}
