package core

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrEndpointGone is reported by a PushTransport when the push service says the
// endpoint is permanently invalid (HTTP 404/410): the subscription will never
// deliver again and must be pruned by the caller.
var ErrEndpointGone = errors.New("push endpoint gone")

type (
	// PushEndpoint is one device's delivery address with its encryption keys,
	// as provided by the browser's PushManager.
	PushEndpoint struct {
		Endpoint string
		P256dh   string
		Auth     string
	}

	// PushMessage is the logical notification payload. It is delivered to the
	// transport as opaque JSON.
	PushMessage struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		URL   string `json:"url"`
		Type  string `json:"type"`
	}

	// PushTransport is any service that can deliver a PushMessage to a single
	// PushEndpoint. Transient failures are returned as plain errors;
	// permanently dead endpoints are reported as ErrEndpointGone.
	PushTransport interface {
		SendNotification(ctx context.Context, ep PushEndpoint, msg PushMessage) error
	}
)

// Payload renders the wire payload; URL defaults to "/".
func (m PushMessage) Payload() ([]byte, error) {
	if m.URL == "" {
		m.URL = "/"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling push payload")
	}
	return data, nil
}
