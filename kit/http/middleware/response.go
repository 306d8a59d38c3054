package middleware

import (
	"context"
	"net/http"

	"github.com/superj80820/url-shortener/kit/code"
	httpKit "github.com/superj80820/url-shortener/kit/http"
)

type successCodeWriter struct {
	http.ResponseWriter
	httpCode    int
	wroteHeader bool
}

func (s *successCodeWriter) WriteHeader(int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(s.httpCode)
}

func (s *successCodeWriter) Write(b []byte) (int, error) {
	s.WriteHeader(s.httpCode)
	return s.ResponseWriter.Write(b)
}

// EncodeResponseSetSuccessHTTPCode writes the status picked by code.ParseResponseSuccessCode before any body byte.
func EncodeResponseSetSuccessHTTPCode(next func(ctx context.Context, w http.ResponseWriter, response interface{}) error) func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		ctx = httpKit.CustomAfterCtx(ctx, w)

		writer := &successCodeWriter{
			ResponseWriter: w,
			httpCode:       code.ParseResponseSuccessCode(response).HTTPCode,
		}
		if err := next(ctx, writer, response); err != nil {
			return err
		}
		writer.WriteHeader(writer.httpCode)
		return nil
	}
}
