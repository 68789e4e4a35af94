// Package feeds holds the latest values streamed from the robot: its pose
// and the patrol selector marker. Feeds are latest-wins. Consumers poll
// the current value on their own cadence; there is no queue and no
// per-sample delivery guarantee.
package feeds

import (
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-patrol/pkg/geometry"
)

// PoseFeed holds the most recent robot pose.
type PoseFeed struct {
	v atomic.Pointer[poseSample]
}

type poseSample struct {
	pose geometry.Pose
	at   time.Time
}

// NewPoseFeed returns an empty feed. Latest reports no value until the
// first Set.
func NewPoseFeed() *PoseFeed {
	return &PoseFeed{}
}

// Set replaces the current pose.
func (f *PoseFeed) Set(p geometry.Pose) {
	f.v.Store(&poseSample{pose: p, at: time.Now()})
}

// Latest returns the current pose and whether one has been received.
func (f *PoseFeed) Latest() (geometry.Pose, bool) {
	s := f.v.Load()
	if s == nil {
		return geometry.Pose{}, false
	}
	return s.pose, true
}

// LastUpdate returns when the current pose arrived, or the zero time if
// none has.
func (f *PoseFeed) LastUpdate() time.Time {
	s := f.v.Load()
	if s == nil {
		return time.Time{}
	}
	return s.at
}

// SelectorNone is the selector value before any marker has been seen.
// A marker publishing -1 is indistinguishable from silence.
const SelectorNone int64 = -1

// SelectorFeed holds the most recent selector marker value.
type SelectorFeed struct {
	v atomic.Int64
}

// NewSelectorFeed returns a feed primed with SelectorNone.
func NewSelectorFeed() *SelectorFeed {
	f := &SelectorFeed{}
	f.v.Store(SelectorNone)
	return f
}

// Set replaces the current selector value.
func (f *SelectorFeed) Set(value int64) {
	f.v.Store(value)
}

// Latest returns the current selector value.
func (f *SelectorFeed) Latest() int64 {
	return f.v.Load()
}
