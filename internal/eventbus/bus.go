// Package eventbus is an in-process publish/subscribe registry keyed by
// event name. Dispatch is synchronous and follows registration order.
package eventbus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
)

const (
	OnRetrievePostcodeLocation  = "ON_RETRIEVE_POSTCODE_LOCATION"
	OnRetrieveUserLocation      = "ON_RETRIEVE_USER_LOCATION"
	OnRetrieveUserLocationError = "ON_RETRIEVE_USER_LOCATION_ERROR"
	OnUserResetMap              = "ON_USER_RESET_MAP"
)

var (
	ErrEmptyEventName = errors.New("event name must not be empty")
	ErrNilHandler     = errors.New("handler must not be nil")
)

type Handler func(data any)

// Subscription identifies one registration and is the key for Off.
type Subscription struct {
	Name string
	id   uint64
}

type entry struct {
	id      uint64
	handler Handler
}

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
		logger:   logging.OrDefault(logger),
	}
}

func (b *Bus) On(name string, handler Handler) (Subscription, error) {
	if name == "" {
		return Subscription{}, ErrEmptyEventName
	}
	if handler == nil {
		return Subscription{}, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], entry{id: b.nextID, handler: handler})
	return Subscription{Name: name, id: b.nextID}, nil
}

// Fire calls every handler registered for name with data. Handlers added
// or removed while dispatching take effect on the next Fire.
func (b *Bus) Fire(name string, data any) error {
	if name == "" {
		return ErrEmptyEventName
	}

	b.mu.RLock()
	registered := b.handlers[name]
	snapshot := make([]entry, len(registered))
	copy(snapshot, registered)
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		b.logger.Debug("event has no subscribers", "event", name)
		return nil
	}
	for _, e := range snapshot {
		e.handler(data)
	}
	return nil
}

// Off reports whether sub was registered under name.
func (b *Bus) Off(name string, sub Subscription) bool {
	if name == "" || sub.Name != name {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	registered := b.handlers[name]
	for i, e := range registered {
		if e.id != sub.id {
			continue
		}
		remaining := make([]entry, 0, len(registered)-1)
		remaining = append(remaining, registered[:i]...)
		remaining = append(remaining, registered[i+1:]...)
		if len(remaining) == 0 {
			delete(b.handlers, name)
		} else {
			b.handlers[name] = remaining
		}
		return true
	}
	return false
}

func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
