package events

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type recorded struct {
	topic  string
	fields map[string]any
}

func startInline(t *testing.T) (*Broker, <-chan recorded) {
	t.Helper()
	b, err := StartBroker("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	ch := make(chan recorded, 64)
	require.NoError(t, b.Subscribe("usbrecord/#", 1, func(topic string, payload []byte) {
		fields, err := Decode(payload)
		if err != nil {
			return
		}
		ch <- recorded{topic, fields}
	}))
	return b, ch
}

func receive(t *testing.T, ch <-chan recorded) recorded {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("没有收到消息")
		return recorded{}
	}
}

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2024, 4, 26, 21, 41, 0, 0, time.UTC)
	out, err := Encode("s1", "record_stopped", at, map[string]any{
		"frames":  120,
		"elapsed": 1500 * time.Millisecond,
		"file":    "/tmp/a.avi",
		"err":     errors.New("boom"),
		"ok":      true,
		"weird":   struct{ A int }{1},
	})
	require.NoError(t, err)

	m, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "s1", m["session"])
	assert.Equal(t, "record_stopped", m["event"])
	assert.Equal(t, "2024-04-26T21:41:00Z", m["time"])
	assert.Equal(t, float64(120), m["frames"])
	assert.Equal(t, 1.5, m["elapsed"])
	assert.Equal(t, "boom", m["err"])
	assert.Equal(t, true, m["ok"])
	assert.Equal(t, "{1}", m["weird"])
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff})
	assert.Error(t, err)
}

func TestPublisherNotify(t *testing.T) {
	b, ch := startInline(t)
	p := NewPublisher(b, "usbrecord", "abc")

	p.Notify("camera_opened", map[string]any{"index": 2})

	r := receive(t, ch)
	assert.Equal(t, "usbrecord/events", r.topic)
	assert.Equal(t, "camera_opened", r.fields["event"])
	assert.Equal(t, "abc", r.fields["session"])
	assert.Equal(t, float64(2), r.fields["index"])
}

func TestPublisherRunStatus(t *testing.T) {
	b, ch := startInline(t)
	p := NewPublisher(b, "usbrecord", "abc")

	var mu sync.Mutex
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunStatus(ctx, 10*time.Millisecond, func() map[string]any {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return map[string]any{"state": "recording", "frames": calls}
		})
		close(done)
	}()

	r := receive(t, ch)
	assert.Equal(t, "usbrecord/status", r.topic)
	assert.Equal(t, "recording", r.fields["state"])

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunStatus 没有退出")
	}
}

func TestBrokerTCPListener(t *testing.T) {
	b, err := StartBroker("127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}
