package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

type instrumenting struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
}

// CreateMetrics registers one counter and one summary per endpoint name on the default registry.
func CreateMetrics(namespace, subsystem string) func(method string) endpoint.Middleware {
	fieldKeys := []string{"method", "error"}
	i := &instrumenting{
		requestCount: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys),
		requestLatency: kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_latency_seconds",
			Help:      "Total duration of requests in seconds.",
		}, fieldKeys),
	}

	return func(method string) endpoint.Middleware {
		return func(next endpoint.Endpoint) endpoint.Endpoint {
			return func(ctx context.Context, request interface{}) (response interface{}, err error) {
				defer func(begin time.Time) {
					lvs := []string{"method", method, "error", fmt.Sprint(err != nil)}
					i.requestCount.With(lvs...).Add(1)
					i.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
				}(time.Now())
				return next(ctx, request)
			}
		}
	}
}
