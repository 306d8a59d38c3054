package mq

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrQueueFull = errors.New("queue is full")
	ErrClosed    = errors.New("topic is closed")
)

type Notify func(message []byte) error
type NotifyBatch func(messages [][]byte) error

type Observer interface {
	GetKey() string
	Notify(message []byte) error
	NotifyBatch(messages [][]byte) error
	IsBatch() bool
	UnSubscribeHook()
	ErrorHandler(error)
}

type Message interface {
	GetKey() string
	Marshal() ([]byte, error)
}

// MQTopic is a single topic. Produce never waits on consumers, it fails with ErrQueueFull instead.
type MQTopic interface {
	Subscribe(key string, notify Notify, options ...ObserverOption) Observer
	SubscribeBatch(key string, notifyBatch NotifyBatch, options ...ObserverOption) Observer
	UnSubscribe(observer Observer)
	Produce(ctx context.Context, message Message) error
	Done() <-chan struct{}
	Err() error
	Shutdown() bool
}

type ObserverOption func(*ObserverOptionConfig)

type ObserverOptionConfig struct {
	UnSubscribeHook func() error
	ErrorHandler    func(error)
}

func AddUnSubscribeHook(unSubscribeHook func() error) ObserverOption {
	return func(ooc *ObserverOptionConfig) {
		ooc.UnSubscribeHook = unSubscribeHook
	}
}

func AddErrorHandler(errorHandler func(error)) ObserverOption {
	return func(ooc *ObserverOptionConfig) {
		ooc.ErrorHandler = errorHandler
	}
}
