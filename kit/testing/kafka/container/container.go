package container

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/kit/testing"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type kafkaContainer struct {
	uri       string
	container *kafka.KafkaContainer
}

func CreateKafka(ctx context.Context) (testing.KafkaContainer, error) {
	container, err := kafka.RunContainer(
		ctx,
		testcontainers.WithImage("confluentinc/confluent-local:7.5.0"),
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "run container failed")
	}
	brokers, err := container.Brokers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get container brokers failed")
	}

	return &kafkaContainer{
		uri:       strings.Join(brokers, ","),
		container: container,
	}, nil
}

func (k *kafkaContainer) GetURI() string {
	return k.uri
}

func (k *kafkaContainer) Terminate(ctx context.Context) error {
	if err := k.container.Terminate(ctx); err != nil {
		return errors.Wrap(err, "terminate failed")
	}
	return nil
}
