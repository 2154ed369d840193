package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	sarama "github.com/IBM/sarama"
	"github.com/google/uuid"
)

func newKafkaBus(t *testing.T) (*KafkaBus, context.Context) {
	t.Helper()
	addr := os.Getenv("RESLOCK_TEST_KAFKA_ADDR")
	if addr == "" {
		t.Skip("RESLOCK_TEST_KAFKA_ADDR not set, skipping Kafka integration tests")
	}
	t.Logf("using real Kafka at %s", addr)

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	bus, err := NewKafkaBus([]string{addr}, config)
	if err != nil {
		t.Fatalf("NewKafkaBus: %v", err)
	}
	t.Cleanup(bus.Close)
	return bus, context.Background()
}

func TestKafkaPublishSubscribe(t *testing.T) {
	bus, ctx := newKafkaBus(t)
	resource := "test-" + uuid.NewString()

	ch, err := bus.Subscribe(ctx, resource)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Wait for the partition consumer to be ready.
	time.Sleep(2 * time.Second)

	evt := Event{Kind: KindAcquired, Resource: resource, TaskID: "T"}
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.Kind != KindAcquired || got.Resource != resource || got.TaskID != "T" {
			t.Fatalf("event = %+v", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	m := bus.BusMetrics()
	if m.Published != 1 || m.Delivered != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}
