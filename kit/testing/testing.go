package testing

import "context"

// Container is a throwaway dependency started for integration tests.
type Container interface {
	GetURI() string
	Terminate(context.Context) error
}

type (
	RedisContainer    = Container
	KafkaContainer    = Container
	PostgresContainer = Container
)
