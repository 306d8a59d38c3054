package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	mqKit "github.com/superj80820/url-shortener/kit/mq"
	utilKit "github.com/superj80820/url-shortener/kit/util"
)

type mqClickMessage struct {
	*domain.Click
}

var _ mqKit.Message = (*mqClickMessage)(nil)

// GetKey keys by link so one link's clicks stay on one partition.
func (m *mqClickMessage) GetKey() string {
	return strconv.FormatInt(m.LinkID, 10)
}

func (m *mqClickMessage) Marshal() ([]byte, error) {
	marshalMessage, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal failed")
	}
	return marshalMessage, nil
}

type clickQueueRepo struct {
	clickMQTopic mqKit.MQTopic
	observers    utilKit.GenericSyncMap[string, mqKit.Observer]
}

func CreateClickQueueRepo(clickMQTopic mqKit.MQTopic) domain.ClickQueueRepo {
	return &clickQueueRepo{
		clickMQTopic: clickMQTopic,
	}
}

func (c *clickQueueRepo) Produce(ctx context.Context, click *domain.Click) error {
	if err := c.clickMQTopic.Produce(ctx, &mqClickMessage{Click: click}); err != nil {
		return errors.Wrap(err, "produce click failed")
	}
	return nil
}

func (c *clickQueueRepo) Consume(key string, notify func(clicks []*domain.Click) error, errorHandler func(error)) {
	observer := c.clickMQTopic.SubscribeBatch(key, func(messages [][]byte) error {
		clicks := make([]*domain.Click, 0, len(messages))
		for _, message := range messages {
			var mqMessage mqClickMessage
			if err := json.Unmarshal(message, &mqMessage); err != nil || mqMessage.Click == nil {
				errorHandler(errors.Wrapf(domain.ErrInvalidData, "undecodable click message: %s", string(message)))
				continue
			}
			clicks = append(clicks, mqMessage.Click)
		}
		if len(clicks) == 0 {
			return nil
		}
		if err := notify(clicks); err != nil {
			return errors.Wrap(err, "notify failed")
		}
		return nil
	}, mqKit.AddErrorHandler(errorHandler))
	c.observers.Store(key, observer)
}

func (c *clickQueueRepo) StopConsume(key string) {
	observer, ok := c.observers.Load(key)
	if !ok {
		return
	}
	c.clickMQTopic.UnSubscribe(observer)
	c.observers.Delete(key)
}

func (c *clickQueueRepo) Done() <-chan struct{} {
	return c.clickMQTopic.Done()
}

func (c *clickQueueRepo) Err() error {
	return c.clickMQTopic.Err()
}
