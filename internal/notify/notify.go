// Package notify publishes postcode lookup events to a message broker.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
)

var ErrPublishFailed = errors.New("publish failed")

type LookupEvent struct {
	ID       string    `json:"id"`
	Postcode string    `json:"postcode"`
	Status   int       `json:"status"`
	Lat      float64   `json:"lat,omitempty"`
	Lng      float64   `json:"lng,omitempty"`
	At       time.Time `json:"at"`
}

// NewLookupEvent stamps the event with a fresh id and the current time.
func NewLookupEvent(postcode string, status int, lat, lng float64) LookupEvent {
	return LookupEvent{
		ID:       uuid.NewString(),
		Postcode: postcode,
		Status:   status,
		Lat:      lat,
		Lng:      lng,
		At:       time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event LookupEvent) error
}

func encode(event LookupEvent) ([]byte, error) {
	return json.Marshal(event)
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, event LookupEvent) error {
	logging.OrDefault(p.Logger).Debug("postcode lookup",
		"event_id", event.ID, "postcode", event.Postcode, "status", event.Status)
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event LookupEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
