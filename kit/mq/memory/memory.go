package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/kit/mq"
	"github.com/superj80820/url-shortener/kit/util"
)

type memoryMQ struct {
	observers util.GenericSyncMap[mq.Observer, mq.Observer]
	messageCh chan []byte
	doneCh    chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ mq.MQTopic = (*memoryMQ)(nil)

// CreateMemoryMQ buffers up to messageChannelBuffer messages and hands them to observers
// every messageCollectDuration. Shutdown flushes what is still buffered.
func CreateMemoryMQ(ctx context.Context, messageChannelBuffer int, messageCollectDuration time.Duration) mq.MQTopic {
	ctx, cancel := context.WithCancel(ctx)

	m := &memoryMQ{
		messageCh: make(chan []byte, messageChannelBuffer),
		doneCh:    make(chan struct{}),
		cancel:    cancel,
	}

	go m.run(ctx, messageCollectDuration)

	return m
}

func (m *memoryMQ) run(ctx context.Context, messageCollectDuration time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(messageCollectDuration)
	defer ticker.Stop()

	var messages [][]byte
	for {
		select {
		case message := <-m.messageCh:
			messages = append(messages, message)
		case <-ticker.C:
			if len(messages) == 0 {
				continue
			}
			m.flush(messages)
			messages = nil
		case <-ctx.Done():
			for {
				select {
				case message := <-m.messageCh:
					messages = append(messages, message)
				default:
					if len(messages) > 0 {
						m.flush(messages)
					}
					return
				}
			}
		}
	}
}

func (m *memoryMQ) flush(messages [][]byte) {
	var observers []mq.Observer
	m.observers.Range(func(key, _ mq.Observer) bool {
		observers = append(observers, key)
		return true
	})
	mq.Dispatch(observers, messages)
}

func (m *memoryMQ) Done() <-chan struct{} {
	return m.doneCh
}

func (m *memoryMQ) Err() error {
	return nil
}

func (m *memoryMQ) Produce(ctx context.Context, message mq.Message) error {
	select {
	case <-m.doneCh:
		return mq.ErrClosed
	default:
	}

	marshalData, err := message.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal failed")
	}

	select {
	case m.messageCh <- marshalData:
		return nil
	default:
		return mq.ErrQueueFull
	}
}

func (m *memoryMQ) Shutdown() bool {
	m.closeOnce.Do(m.cancel)
	<-m.doneCh
	return true
}

func (m *memoryMQ) Subscribe(key string, notify mq.Notify, options ...mq.ObserverOption) mq.Observer {
	observer := mq.CreateObserver(key, notify, options...)
	m.observers.Store(observer, observer)
	return observer
}

func (m *memoryMQ) SubscribeBatch(key string, notifyBatch mq.NotifyBatch, options ...mq.ObserverOption) mq.Observer {
	observer := mq.CreateObserverBatch(key, notifyBatch, options...)
	m.observers.Store(observer, observer)
	return observer
}

func (m *memoryMQ) UnSubscribe(observer mq.Observer) {
	if _, ok := m.observers.Load(observer); !ok {
		return
	}
	m.observers.Delete(observer)
	observer.UnSubscribeHook()
}
