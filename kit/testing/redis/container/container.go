package container

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/kit/testing"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

type redisContainer struct {
	uri       string
	container *redis.RedisContainer
}

type Option func(*redisConfig)

type redisConfig struct {
	image string
}

// SetImage overrides the redis image, e.g. to pin the server version production runs.
func SetImage(image string) Option {
	return func(rc *redisConfig) {
		rc.image = image
	}
}

// CreateRedis starts redis and returns its host:port address, the form redisKit.CreateCache takes.
func CreateRedis(ctx context.Context, options ...Option) (testing.RedisContainer, error) {
	config := &redisConfig{
		image: "docker.io/redis:7",
	}
	for _, option := range options {
		option(config)
	}

	container, err := redis.RunContainer(ctx,
		testcontainers.WithImage(config.image),
		redis.WithLogLevel(redis.LogLevelNotice),
	)
	if err != nil {
		return nil, errors.Wrap(err, "run container failed")
	}
	connectionString, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get container connection string failed")
	}

	return &redisContainer{
		container: container,
		uri:       strings.TrimPrefix(connectionString, "redis://"),
	}, nil
}

func (r *redisContainer) GetURI() string {
	return r.uri
}

func (r *redisContainer) Terminate(ctx context.Context) error {
	if err := r.container.Terminate(ctx); err != nil {
		return errors.Wrap(err, "terminate redis failed")
	}
	return nil
}
