package maps

import (
	"fmt"
	"io"
	"sync"
)

// Console renders map operations as lines of text.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetCenter(center LatLng) {
	c.printf("center %s\n", center)
}

func (c *Console) SetZoom(zoom int) {
	c.printf("zoom %d\n", zoom)
}

func (c *Console) AddMarker(at LatLng) Marker {
	c.printf("marker added %s\n", at)
	return &consoleMarker{console: c, at: at}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

type consoleMarker struct {
	console *Console
	at      LatLng
}

func (m *consoleMarker) Remove() {
	m.console.printf("marker removed %s\n", m.at)
}
