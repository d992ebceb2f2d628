package dummypushsvc

import (
	"context"
	"sync"

	"github.com/hisakoh/campushub/core"
)

type SentNotification struct {
	Endpoint core.PushEndpoint
	Message  core.PushMessage
}

// Transport records deliveries in memory; for tests. Failures can be scripted
// per endpoint via Fail.
type Transport struct {
	mu       sync.Mutex
	sent     []SentNotification
	failures map[string]error
}

var _ core.PushTransport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{failures: make(map[string]error)}
}

// Fail makes every delivery to endpoint return err.
func (t *Transport) Fail(endpoint string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[endpoint] = err
}

func (t *Transport) SendNotification(_ context.Context, ep core.PushEndpoint, msg core.PushMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failures[ep.Endpoint]; ok {
		return err
	}
	t.sent = append(t.sent, SentNotification{Endpoint: ep, Message: msg})
	return nil
}

func (t *Transport) Sent() []SentNotification {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent := make([]SentNotification, len(t.sent))
	copy(sent, t.sent)
	return sent
}

func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
	t.failures = make(map[string]error)
}
