package container

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/kit/testing"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type postgresContainer struct {
	uri       string
	container *postgres.PostgresContainer
}

func (p *postgresContainer) GetURI() string {
	return p.uri
}

func (p *postgresContainer) Terminate(ctx context.Context) error {
	if err := p.container.Terminate(ctx); err != nil {
		return errors.Wrap(err, "terminate failed")
	}
	return nil
}

type Option func(*postgresConfig)

type postgresConfig struct {
	zone string
}

func SetZone(zone string) Option {
	return func(pc *postgresConfig) {
		pc.zone = zone
	}
}

// CreatePostgres starts postgres and runs scriptFilePath once it is up. An empty path skips the script.
func CreatePostgres(ctx context.Context, scriptFilePath string, options ...Option) (testing.PostgresContainer, error) {
	dbName := "shortener"
	dbUser := "user"
	dbPassword := "password"

	config := &postgresConfig{
		zone: "UTC",
	}

	for _, option := range options {
		option(config)
	}

	containerOptions := []testcontainers.ContainerCustomizer{
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second)),
	}
	if scriptFilePath != "" {
		containerOptions = append(containerOptions, postgres.WithInitScripts(scriptFilePath))
	}

	container, err := postgres.RunContainer(ctx, containerOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "run container failed")
	}

	dbHost, err := container.Host(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get container host failed")
	}
	dbPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, errors.Wrap(err, "mapped container port failed")
	}

	return &postgresContainer{
		uri: fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
			dbHost,
			dbUser,
			dbPassword,
			dbName,
			dbPort.Port(),
			config.zone,
		),
		container: container,
	}, nil
}
