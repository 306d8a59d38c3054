package kafka

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/superj80820/url-shortener/kit/mq"
	"github.com/superj80820/url-shortener/kit/util"
)

const FirstOffset = kafka.FirstOffset

type (
	WriterBalancer = kafka.Balancer

	Hash = kafka.Hash
)

type MQTopicOption func(*mqTopicConfig)

type mqTopicConfig struct {
	brokers []string
	topic   string

	writerBalancer WriterBalancer
	writerAsync    bool

	isCreateTopic                bool
	createTopicNumPartitions     int
	createTopicReplicationFactor int

	readerGroupID         string
	readerStartOffset     int64
	readerBatchSize       int
	readerCollectDuration time.Duration

	errorHandler func(error)
}

func ProduceWay(balancer WriterBalancer) MQTopicOption {
	return func(m *mqTopicConfig) {
		m.writerBalancer = balancer
	}
}

// UseSyncWriter makes Produce wait for the broker ack.
func UseSyncWriter(m *mqTopicConfig) {
	m.writerAsync = false
}

func ConsumeByGroupID(groupID string, startOffset int64) MQTopicOption {
	return func(m *mqTopicConfig) {
		m.readerGroupID = groupID
		m.readerStartOffset = startOffset
	}
}

func ConsumeBatch(batchSize int, collectDuration time.Duration) MQTopicOption {
	return func(m *mqTopicConfig) {
		m.readerBatchSize = batchSize
		m.readerCollectDuration = collectDuration
	}
}

func CreateTopic(numPartitions, replicationFactor int) MQTopicOption {
	return func(m *mqTopicConfig) {
		m.isCreateTopic = true
		m.createTopicNumPartitions = numPartitions
		m.createTopicReplicationFactor = replicationFactor
	}
}

func AddErrorHandler(errorHandler func(error)) MQTopicOption {
	return func(m *mqTopicConfig) {
		m.errorHandler = errorHandler
	}
}

type mqTopic struct {
	config *mqTopicConfig

	writer *kafka.Writer
	reader *kafka.Reader

	observers util.GenericSyncMap[mq.Observer, mq.Observer]

	cancel    context.CancelFunc
	closeOnce sync.Once
	doneCh    chan struct{}
	errLock   sync.RWMutex
	err       error
}

var _ mq.MQTopic = (*mqTopic)(nil)

// CreateMQTopic connects a writer to topic and, when ConsumeByGroupID is given, a group reader
// that commits offsets only after every observer saw the batch.
func CreateMQTopic(ctx context.Context, url, topic string, options ...MQTopicOption) (mq.MQTopic, error) {
	config := &mqTopicConfig{
		brokers: strings.Split(url, ","),
		topic:   topic,

		writerBalancer: &kafka.Hash{},
		writerAsync:    true,

		readerStartOffset:     FirstOffset,
		readerBatchSize:       100,
		readerCollectDuration: 100 * time.Millisecond,

		errorHandler: func(error) {},
	}
	for _, option := range options {
		option(config)
	}

	if config.isCreateTopic {
		if err := createTopic(config.brokers[0], topic, config.createTopicNumPartitions, config.createTopicReplicationFactor); err != nil {
			return nil, errors.Wrap(err, "create topic failed")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &mqTopic{
		config: config,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(config.brokers...),
			Topic:        topic,
			Balancer:     config.writerBalancer,
			Async:        config.writerAsync,
			BatchTimeout: 10 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					config.errorHandler(errors.Wrapf(err, "write %d messages failed", len(messages)))
				}
			},
		},
		cancel: cancel,
		doneCh: make(chan struct{}),
	}

	if config.readerGroupID == "" {
		go func() {
			<-ctx.Done()
			close(m.doneCh)
		}()
		return m, nil
	}

	m.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.brokers,
		Topic:       topic,
		GroupID:     config.readerGroupID,
		StartOffset: config.readerStartOffset,
		MaxBytes:    10e6, // 10MB
	})
	go m.consume(ctx)

	return m, nil
}

func (m *mqTopic) consume(ctx context.Context) {
	defer close(m.doneCh)

	for {
		kafkaMessages, err := m.fetchBatch(ctx)
		if len(kafkaMessages) > 0 {
			messages := make([][]byte, len(kafkaMessages))
			for idx, kafkaMessage := range kafkaMessages {
				messages[idx] = kafkaMessage.Value
			}
			mq.Dispatch(m.getObservers(), messages)

			if commitErr := m.reader.CommitMessages(context.Background(), kafkaMessages...); commitErr != nil {
				m.config.errorHandler(errors.Wrap(commitErr, "commit messages failed"))
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				m.setErr(err)
			}
			return
		}
	}
}

func (m *mqTopic) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	collectCtx, cancel := context.WithTimeout(ctx, m.config.readerCollectDuration)
	defer cancel()

	var kafkaMessages []kafka.Message
	for len(kafkaMessages) < m.config.readerBatchSize {
		kafkaMessage, err := m.reader.FetchMessage(collectCtx)
		if err != nil {
			if ctx.Err() == nil && collectCtx.Err() != nil {
				return kafkaMessages, nil
			}
			return kafkaMessages, errors.Wrap(err, "fetch message failed")
		}
		kafkaMessages = append(kafkaMessages, kafkaMessage)
	}
	return kafkaMessages, nil
}

func (m *mqTopic) getObservers() []mq.Observer {
	var observers []mq.Observer
	m.observers.Range(func(key, _ mq.Observer) bool {
		observers = append(observers, key)
		return true
	})
	return observers
}

func (m *mqTopic) setErr(err error) {
	m.errLock.Lock()
	defer m.errLock.Unlock()
	m.err = err
}

func (m *mqTopic) Subscribe(key string, notify mq.Notify, options ...mq.ObserverOption) mq.Observer {
	observer := mq.CreateObserver(key, notify, options...)
	m.observers.Store(observer, observer)
	return observer
}

func (m *mqTopic) SubscribeBatch(key string, notifyBatch mq.NotifyBatch, options ...mq.ObserverOption) mq.Observer {
	observer := mq.CreateObserverBatch(key, notifyBatch, options...)
	m.observers.Store(observer, observer)
	return observer
}

func (m *mqTopic) UnSubscribe(observer mq.Observer) {
	if _, ok := m.observers.Load(observer); !ok {
		return
	}
	m.observers.Delete(observer)
	observer.UnSubscribeHook()
}

func (m *mqTopic) Produce(ctx context.Context, message mq.Message) error {
	select {
	case <-m.doneCh:
		return mq.ErrClosed
	default:
	}

	marshalMessage, err := message.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal message failed")
	}

	if err := m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.GetKey()),
		Value: marshalMessage,
	}); err != nil {
		return errors.Wrap(err, "write messages to kafka failed")
	}

	return nil
}

func (m *mqTopic) Shutdown() bool {
	m.closeOnce.Do(m.cancel)

	select {
	case <-m.doneCh:
	case <-time.After(10 * time.Second):
		return false
	}

	if err := m.writer.Close(); err != nil {
		m.config.errorHandler(errors.Wrap(err, "close writer failed"))
	}
	if m.reader != nil {
		if err := m.reader.Close(); err != nil {
			m.config.errorHandler(errors.Wrap(err, "close reader failed"))
		}
	}
	return true
}

func (m *mqTopic) Done() <-chan struct{} {
	return m.doneCh
}

func (m *mqTopic) Err() error {
	m.errLock.RLock()
	defer m.errLock.RUnlock()
	return m.err
}

func createTopic(url, topic string, numPartitions, replicationFactor int) error {
	conn, err := kafka.Dial("tcp", url)
	if err != nil {
		return errors.Wrap(err, "dial kafka failed")
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return errors.Wrap(err, "read partitions failed")
	}
	for _, p := range partitions {
		if topic == p.Topic {
			return nil
		}
	}

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, "get controller failed")
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, "controller connect failed")
	}
	defer controllerConn.Close()

	if err := controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return errors.Wrap(err, "create topics failed")
	}

	return nil
}
