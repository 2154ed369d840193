package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	sarama "github.com/IBM/sarama"
)

const kafkaTopicPrefix = "reslock-"

type kafkaSubscription struct {
	pc    sarama.PartitionConsumer
	chans []chan Event
}

// KafkaBus implements Bus using a Kafka backend. Each resource maps to the
// topic "reslock-<resource>"; resource name syntax is a subset of legal
// Kafka topic characters.
type KafkaBus struct {
	producer  sarama.SyncProducer
	consumer  sarama.Consumer
	mu        sync.Mutex
	subs      map[string]*kafkaSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewKafkaBus creates a new KafkaBus connecting to the given brokers.
func NewKafkaBus(brokers []string, cfg *sarama.Config) (*KafkaBus, error) {
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	return &KafkaBus{
		producer: producer,
		consumer: consumer,
		subs:     make(map[string]*kafkaSubscription),
	}, nil
}

// Publish implements Bus.Publish.
func (b *KafkaBus) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(&evt)
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: kafkaTopicPrefix + evt.Resource,
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *KafkaBus) Subscribe(ctx context.Context, resource string) (<-chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	sub := b.subs[resource]
	if sub == nil {
		pc, err := b.consumer.ConsumePartition(kafkaTopicPrefix+resource, 0, sarama.OffsetNewest)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &kafkaSubscription{pc: pc}
		b.subs[resource] = sub
		go b.dispatch(sub, resource)
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), resource, ch)
	}()
	return ch, nil
}

func (b *KafkaBus) dispatch(sub *kafkaSubscription, resource string) {
	for msg := range sub.pc.Messages() {
		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			continue
		}
		b.mu.Lock()
		cur, ok := b.subs[resource]
		if !ok {
			b.mu.Unlock()
			return
		}
		chans := append([]chan Event(nil), cur.chans...)
		b.mu.Unlock()
		for _, ch := range chans {
			select {
			case ch <- evt:
				b.delivered.Add(1)
			default:
			}
		}
	}
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *KafkaBus) Unsubscribe(ctx context.Context, resource string, ch <-chan Event) error {
	b.mu.Lock()
	sub := b.subs[resource]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans[i] = sub.chans[len(sub.chans)-1]
			sub.chans = sub.chans[:len(sub.chans)-1]
			close(c)
			break
		}
	}
	if len(sub.chans) == 0 {
		delete(b.subs, resource)
		b.mu.Unlock()
		return sub.pc.Close()
	}
	b.mu.Unlock()
	return nil
}

// BusMetrics returns the published and delivered counts.
func (b *KafkaBus) BusMetrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}

// Close releases resources used by the KafkaBus.
func (b *KafkaBus) Close() {
	_ = b.producer.Close()
	_ = b.consumer.Close()
}
