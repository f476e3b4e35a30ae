package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer("topic")
	assert.Error(t, err, "brokers are required")

	_, err = NewProducer("", WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err, "topic is required")

	p, err := NewProducer("topic", WithBrokers([]string{"localhost:9092"}), WithAsync(true))
	require.NoError(t, err)
	assert.Equal(t, "topic", p.Topic())
}

func TestPublish_EncodesJSONWithKey(t *testing.T) {
	w := &memWriter{}
	p := NewProducerWithWriter("progress", w)

	err := p.Publish(context.Background(), "run_1", map[string]interface{}{"symbol": "AAPL", "n": 3})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run_1", string(w.msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "AAPL", decoded["symbol"])
}

func TestPublish_WrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter("progress", &memWriter{err: boom})

	err := p.Publish(context.Background(), "k", "v")
	assert.ErrorIs(t, err, boom)
}
