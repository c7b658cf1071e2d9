package maps

import "fmt"

// DefaultCenter is roughly the geographic centre of the UK.
var DefaultCenter = LatLng{Lat: 55.378051, Lng: -3.435973}

const (
	DefaultZoom = 4
	LocalZoom   = 14
)

type LatLng struct {
	Lat float64
	Lng float64
}

func (p LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Map is the subset of the rendering library the view needs.
type Map interface {
	SetCenter(center LatLng)
	SetZoom(zoom int)
	AddMarker(at LatLng) Marker
}

type Marker interface {
	Remove()
}
