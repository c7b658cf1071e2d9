package maps

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/silktown-software/postcode-geocode-demo/internal/eventbus"
	"github.com/silktown-software/postcode-geocode-demo/internal/geocode"
)

type fakeMap struct {
	calls  []string
	center LatLng
	zoom   int
	live   int
}

func (m *fakeMap) SetCenter(center LatLng) {
	m.center = center
	m.calls = append(m.calls, "center "+center.String())
}

func (m *fakeMap) SetZoom(zoom int) {
	m.zoom = zoom
	m.calls = append(m.calls, "zoom")
}

func (m *fakeMap) AddMarker(at LatLng) Marker {
	m.live++
	m.calls = append(m.calls, "add "+at.String())
	return &fakeMarker{m: m, at: at}
}

type fakeMarker struct {
	m       *fakeMap
	at      LatLng
	removed bool
}

func (k *fakeMarker) Remove() {
	if k.removed {
		return
	}
	k.removed = true
	k.m.live--
	k.m.calls = append(k.m.calls, "remove "+k.at.String())
}

func newBoundView(t *testing.T) (*fakeMap, *View, *eventbus.Bus) {
	t.Helper()
	m := &fakeMap{}
	v := NewView(m, Options{})
	bus := eventbus.New(nil)
	if err := v.Bind(bus); err != nil {
		t.Fatalf("bind: %v", err)
	}
	m.calls = nil
	return m, v, bus
}

func TestNewViewAppliesDefaults(t *testing.T) {
	m := &fakeMap{}
	NewView(m, Options{})
	if m.center != DefaultCenter || m.zoom != DefaultZoom {
		t.Fatalf("unexpected initial viewport: %v zoom %d", m.center, m.zoom)
	}
}

func TestLocationEventMovesMapAndPlacesMarker(t *testing.T) {
	m, v, bus := newBoundView(t)

	bus.Fire(eventbus.OnRetrievePostcodeLocation, geocode.Location{Lat: 1, Lng: 2})
	if m.center != (LatLng{Lat: 1, Lng: 2}) || m.zoom != LocalZoom {
		t.Fatalf("unexpected viewport: %v zoom %d", m.center, m.zoom)
	}
	if !v.HasMarker() || m.live != 1 {
		t.Fatalf("expected one marker, got %d", m.live)
	}
}

func TestNewLocationRemovesPreviousMarkerFirst(t *testing.T) {
	m, _, bus := newBoundView(t)

	bus.Fire(eventbus.OnRetrievePostcodeLocation, geocode.Location{Lat: 1, Lng: 2})
	bus.Fire(eventbus.OnRetrieveUserLocation, &geocode.Location{Lat: 3, Lng: 4})

	if m.live != 1 {
		t.Fatalf("expected exactly one live marker, got %d", m.live)
	}
	want := []string{
		"center 1.000000,2.000000", "zoom", "add 1.000000,2.000000",
		"remove 1.000000,2.000000", "center 3.000000,4.000000", "zoom", "add 3.000000,4.000000",
	}
	if !reflect.DeepEqual(m.calls, want) {
		t.Fatalf("calls = %v, want %v", m.calls, want)
	}
}

func TestResetWithoutMarkerIsNoop(t *testing.T) {
	m, _, bus := newBoundView(t)

	bus.Fire(eventbus.OnUserResetMap, nil)
	if len(m.calls) != 0 {
		t.Fatalf("expected no map calls, got %v", m.calls)
	}
}

func TestResetRemovesMarkerAndRestoresDefaults(t *testing.T) {
	m, v, bus := newBoundView(t)

	bus.Fire(eventbus.OnRetrievePostcodeLocation, geocode.Location{Lat: 1, Lng: 2})
	bus.Fire(eventbus.OnUserResetMap, nil)

	if v.HasMarker() || m.live != 0 {
		t.Fatalf("expected marker removed")
	}
	if m.center != DefaultCenter || m.zoom != DefaultZoom {
		t.Fatalf("expected default viewport, got %v zoom %d", m.center, m.zoom)
	}
}

func TestUnexpectedPayloadIgnored(t *testing.T) {
	m, v, bus := newBoundView(t)

	bus.Fire(eventbus.OnRetrievePostcodeLocation, "not a location")
	bus.Fire(eventbus.OnRetrievePostcodeLocation, (*geocode.Location)(nil))
	if v.HasMarker() || len(m.calls) != 0 {
		t.Fatalf("expected payload to be ignored, got %v", m.calls)
	}
}

func TestConsoleWritesOperations(t *testing.T) {
	var buf bytes.Buffer
	v := NewView(NewConsole(&buf), Options{})
	v.ShowLocation(LatLng{Lat: 57.14, Lng: -2.11})
	v.Reset()

	out := buf.String()
	for _, want := range []string{
		"center 55.378051,-3.435973",
		"zoom 4",
		"marker added 57.140000,-2.110000",
		"zoom 14",
		"marker removed 57.140000,-2.110000",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCloseUnsubscribesView(t *testing.T) {
	m, v, bus := newBoundView(t)
	names := []string{eventbus.OnRetrievePostcodeLocation, eventbus.OnRetrieveUserLocation, eventbus.OnUserResetMap}
	for _, name := range names {
		if bus.Count(name) != 1 {
			t.Fatalf("expected one subscriber for %s, got %d", name, bus.Count(name))
		}
	}

	v.Close()
	for _, name := range names {
		if bus.Count(name) != 0 {
			t.Fatalf("expected no subscribers for %s after close, got %d", name, bus.Count(name))
		}
	}
	if err := bus.Fire(eventbus.OnRetrievePostcodeLocation, geocode.Location{Lat: 57.14, Lng: -2.11}); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if len(m.calls) != 0 || v.HasMarker() {
		t.Fatalf("closed view should ignore events, got calls %v", m.calls)
	}

	v.Close()
}
