// Package form models the postcode entry form: it validates input, runs
// the geocode lookup and reports the outcome on the event bus.
package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/silktown-software/postcode-geocode-demo/internal/eventbus"
	"github.com/silktown-software/postcode-geocode-demo/internal/geocode"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
)

var (
	ErrEmptyPostcode = errors.New("Please enter a postcode")
	ErrSuperseded    = errors.New("submission superseded by a newer one")
)

type State int

const (
	StateIdle State = iota
	StateValidatingInput
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidatingInput:
		return "validating-input"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type Lookup interface {
	Lookup(ctx context.Context, postcode string) (geocode.Location, error)
}

// Controls is the part of the page the form drives.
type Controls interface {
	SetValue(value string)
	SetButtonsEnabled(enabled bool)
	ShowError(message string)
	HideError()
}

type Form struct {
	bus      *eventbus.Bus
	lookup   Lookup
	controls Controls
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
	subs   []eventbus.Subscription
}

func New(bus *eventbus.Bus, lookup Lookup, controls Controls, logger *slog.Logger) *Form {
	return &Form{
		bus:      bus,
		lookup:   lookup,
		controls: controls,
		logger:   logging.OrDefault(logger),
	}
}

// Bind shows lookup errors inline and hides them again once a location arrives.
func (f *Form) Bind() error {
	onError, err := f.bus.On(eventbus.OnRetrieveUserLocationError, func(data any) {
		err, _ := data.(error)
		f.controls.ShowError(Message(err))
	})
	if err != nil {
		return err
	}
	onLocation, err := f.bus.On(eventbus.OnRetrievePostcodeLocation, func(any) {
		f.controls.HideError()
	})
	if err != nil {
		f.bus.Off(eventbus.OnRetrieveUserLocationError, onError)
		return err
	}

	f.mu.Lock()
	f.subs = append(f.subs, onError, onLocation)
	f.mu.Unlock()
	return nil
}

// Close unsubscribes the form and abandons any in-flight submission.
func (f *Form) Close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.abandonLocked()
	f.mu.Unlock()

	for _, sub := range subs {
		f.bus.Off(sub.Name, sub)
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) KeyUp(value string) {
	f.setState(StateValidatingInput)
	f.controls.SetButtonsEnabled(strings.TrimSpace(value) != "")
	f.setState(StateIdle)
}

// Submit looks up value and publishes the result. Only the most recent
// submission publishes; older ones are cancelled and return ErrSuperseded.
func (f *Form) Submit(ctx context.Context, value string) (geocode.Location, error) {
	f.setState(StateValidatingInput)
	postcode := strings.TrimSpace(value)
	if postcode == "" {
		f.mu.Lock()
		f.abandonLocked()
		f.seq++
		f.state = StateError
		f.mu.Unlock()
		f.publishError(ErrEmptyPostcode)
		return geocode.Location{}, ErrEmptyPostcode
	}

	f.mu.Lock()
	f.abandonLocked()
	f.seq++
	seq := f.seq
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.state = StateSubmitting
	f.mu.Unlock()
	defer cancel()

	loc, err := f.lookup.Lookup(ctx, postcode)

	f.mu.Lock()
	if seq != f.seq {
		f.mu.Unlock()
		f.logger.Debug("dropping stale lookup result", "postcode", postcode, "seq", seq)
		return geocode.Location{}, ErrSuperseded
	}
	f.cancel = nil
	if err != nil {
		f.state = StateError
	} else {
		f.state = StateSuccess
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Info("postcode lookup failed", "postcode", postcode, "error", err)
		f.publishError(err)
		return geocode.Location{}, err
	}
	if err := f.bus.Fire(eventbus.OnRetrievePostcodeLocation, loc); err != nil {
		return geocode.Location{}, err
	}
	return loc, nil
}

func (f *Form) Reset() {
	f.mu.Lock()
	f.abandonLocked()
	f.state = StateIdle
	f.mu.Unlock()

	if err := f.bus.Fire(eventbus.OnUserResetMap, nil); err != nil {
		f.logger.Error("fire reset", "error", err)
	}
	f.controls.SetValue("")
	f.controls.SetButtonsEnabled(false)
	f.controls.HideError()
}

// abandonLocked cancels the in-flight lookup and invalidates its result.
func (f *Form) abandonLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
		f.seq++
	}
}

func (f *Form) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Form) publishError(err error) {
	if fireErr := f.bus.Fire(eventbus.OnRetrieveUserLocationError, err); fireErr != nil {
		f.logger.Error("fire lookup error", "error", fireErr)
	}
}

// Message is the text shown to the user for a lookup failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, geocode.ErrNotFound):
		return geocode.ErrNotFound.Error()
	case errors.Is(err, ErrEmptyPostcode):
		return ErrEmptyPostcode.Error()
	default:
		return geocode.ErrLookupFailed.Error()
	}
}
