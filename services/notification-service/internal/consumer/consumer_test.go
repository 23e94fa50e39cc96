package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
)

type memInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *memInbox) Forget(_ context.Context, eventID string) error {
	delete(m.seen, eventID)
	m.forgotten = append(m.forgotten, eventID)
	return nil
}

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func event(id string) kafka.Message {
	meta := kafkax.EventMeta{EventID: id, EventType: "salon.appointment.booked.v1"}
	return kafka.Message{Topic: meta.EventType, Headers: meta.Headers(), Value: []byte(`{}`)}
}

func TestRunSkipsDuplicates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &sliceReader{msgs: []kafka.Message{event("e-1"), event("e-1"), event("e-2")}, cancel: cancel}
	inbox := &memInbox{seen: map[string]bool{}}

	var handled []string
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), inbox, reader, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, kafkax.ExtractEventMeta(msg).EventID)
		return nil
	})
	c.Run(ctx)

	assert.Equal(t, []string{"e-1", "e-2"}, handled)
	assert.True(t, reader.closed)
}

func TestFailedEventCanBeRedelivered(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	calls := 0
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), inbox, &sliceReader{}, func(context.Context, kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("db down")
		}
		return nil
	})

	c.Process(context.Background(), event("e-1"))
	require.Equal(t, []string{"e-1"}, inbox.forgotten)
	c.Process(context.Background(), event("e-1"))
	assert.Equal(t, 2, calls)
	assert.True(t, inbox.seen["e-1"])
}
