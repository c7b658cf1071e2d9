package maps

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/silktown-software/postcode-geocode-demo/internal/eventbus"
	"github.com/silktown-software/postcode-geocode-demo/internal/geocode"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
)

type Options struct {
	Center    LatLng
	Zoom      int
	LocalZoom int
	Logger    *slog.Logger
}

// View keeps a map on its default viewport until a location arrives and
// tracks the single marker placed for it.
type View struct {
	m         Map
	center    LatLng
	zoom      int
	localZoom int
	logger    *slog.Logger

	mu     sync.Mutex
	marker Marker
	bus    *eventbus.Bus
	subs   []eventbus.Subscription
}

func NewView(m Map, opts Options) *View {
	if opts.Center == (LatLng{}) {
		opts.Center = DefaultCenter
	}
	if opts.Zoom == 0 {
		opts.Zoom = DefaultZoom
	}
	if opts.LocalZoom == 0 {
		opts.LocalZoom = LocalZoom
	}
	v := &View{
		m:         m,
		center:    opts.Center,
		zoom:      opts.Zoom,
		localZoom: opts.LocalZoom,
		logger:    logging.OrDefault(opts.Logger),
	}
	m.SetCenter(v.center)
	m.SetZoom(v.zoom)
	return v
}

// Bind subscribes the view to location and reset events. On error no
// subscription is left behind.
func (v *View) Bind(bus *eventbus.Bus) error {
	handlers := []struct {
		name    string
		handler eventbus.Handler
	}{
		{eventbus.OnRetrievePostcodeLocation, v.handleLocation},
		{eventbus.OnRetrieveUserLocation, v.handleLocation},
		{eventbus.OnUserResetMap, func(any) { v.Reset() }},
	}

	subs := make([]eventbus.Subscription, 0, len(handlers))
	for _, h := range handlers {
		sub, err := bus.On(h.name, h.handler)
		if err != nil {
			for _, s := range subs {
				bus.Off(s.Name, s)
			}
			return err
		}
		subs = append(subs, sub)
	}

	v.mu.Lock()
	v.bus = bus
	v.subs = append(v.subs, subs...)
	v.mu.Unlock()
	return nil
}

// Close unsubscribes the view. The marker stays where it is.
func (v *View) Close() {
	v.mu.Lock()
	bus, subs := v.bus, v.subs
	v.subs = nil
	v.mu.Unlock()

	for _, sub := range subs {
		bus.Off(sub.Name, sub)
	}
}

func (v *View) handleLocation(data any) {
	var loc geocode.Location
	switch d := data.(type) {
	case geocode.Location:
		loc = d
	case *geocode.Location:
		if d == nil {
			v.logger.Warn("ignoring nil location")
			return
		}
		loc = *d
	default:
		v.logger.Warn("ignoring unexpected location payload", "type", fmt.Sprintf("%T", data))
		return
	}
	v.ShowLocation(LatLng{Lat: loc.Lat, Lng: loc.Lng})
}

// ShowLocation moves the viewport to at and replaces the marker.
func (v *View) ShowLocation(at LatLng) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.marker != nil {
		v.marker.Remove()
		v.marker = nil
	}
	v.m.SetCenter(at)
	v.m.SetZoom(v.localZoom)
	v.marker = v.m.AddMarker(at)
}

// Reset restores the default viewport. It does nothing when no marker is shown.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.marker == nil {
		return
	}
	v.marker.Remove()
	v.marker = nil
	v.m.SetCenter(v.center)
	v.m.SetZoom(v.zoom)
}

func (v *View) HasMarker() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.marker != nil
}
