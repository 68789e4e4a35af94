// Package waypoints loads and serves the named map poses a patrol can
// navigate to. Tables come from an embedded default or a YAML file so
// that deployments can swap the site map without rebuilding.
package waypoints

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-patrol/pkg/geometry"
)

//go:embed data/waypoints.yaml
var dataFS embed.FS

// ErrUnknownWaypoint is returned when a lookup names a waypoint the table
// does not contain.
var ErrUnknownWaypoint = errors.New("waypoints: unknown waypoint")

// Waypoint is a named pose in the map frame.
type Waypoint struct {
	ID   string        `json:"id"`
	Pose geometry.Pose `json:"pose"`
}

// Table is an immutable set of waypoints keyed by ID.
type Table struct {
	frame string
	byID  map[string]Waypoint
	order []string
}

type fileWaypoint struct {
	ID          string              `yaml:"id"`
	Position    geometry.Point      `yaml:"position"`
	Orientation geometry.Quaternion `yaml:"orientation"`
}

type file struct {
	Frame     string         `yaml:"frame"`
	Waypoints []fileWaypoint `yaml:"waypoints"`
}

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	data, err := dataFS.ReadFile("data/waypoints.yaml")
	if err != nil {
		return nil, fmt.Errorf("waypoints: reading embedded table: %w", err)
	}
	return Parse(data)
}

// LoadFile parses a waypoint table from a YAML file on disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("waypoints: reading %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("waypoints: parsing %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML waypoint table. Orientation is optional per entry
// and defaults to the identity quaternion.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("waypoints: %w", err)
	}
	if len(f.Waypoints) == 0 {
		return nil, errors.New("waypoints: table is empty")
	}

	t := &Table{
		frame: f.Frame,
		byID:  make(map[string]Waypoint, len(f.Waypoints)),
	}
	if t.frame == "" {
		t.frame = "map"
	}

	for _, w := range f.Waypoints {
		if w.ID == "" {
			return nil, errors.New("waypoints: entry without id")
		}
		if _, exists := t.byID[w.ID]; exists {
			return nil, fmt.Errorf("waypoints: duplicate id %q", w.ID)
		}
		orientation := w.Orientation
		if orientation == (geometry.Quaternion{}) {
			orientation = geometry.Quaternion{W: 1}
		}
		t.byID[w.ID] = Waypoint{
			ID: w.ID,
			Pose: geometry.Pose{
				Position:    w.Position,
				Orientation: orientation,
			},
		}
		t.order = append(t.order, w.ID)
	}
	return t, nil
}

// Frame returns the coordinate frame all poses in the table share.
func (t *Table) Frame() string {
	return t.frame
}

// Lookup returns the waypoint with the given ID.
func (t *Table) Lookup(id string) (Waypoint, error) {
	w, ok := t.byID[id]
	if !ok {
		return Waypoint{}, fmt.Errorf("%w: %q", ErrUnknownWaypoint, id)
	}
	return w, nil
}

// Has reports whether the table contains the given ID.
func (t *Table) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// IDs returns the waypoint IDs in file order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// All returns the waypoints in file order.
func (t *Table) All() []Waypoint {
	out := make([]Waypoint, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// Len returns the number of waypoints in the table.
func (t *Table) Len() int {
	return len(t.order)
}
