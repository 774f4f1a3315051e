// Package input normalises raw pointer, touch and keyboard events into the
// records the editor consumes. State is an explicit value: every transition
// takes the previous State and returns the next one with its output.
package input

import (
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/inamate/whiteboard/internal/geom"
)

const (
	// DoubleClickDuration is the longest gap between a pointer-up and the
	// next pointer-down that still counts as a double click.
	DoubleClickDuration = 250 * time.Millisecond
	// DoubleClickDistance bounds pointer travel within a double click.
	DoubleClickDistance = 4.0
	// TapDistance bounds pointer travel for a press to count as a tap
	// rather than a drag.
	TapDistance = 8.0

	DefaultPressure = 0.5
)

// Modifiers are the modifier keys held during an event. On non-Apple
// platforms Meta mirrors Ctrl.
type Modifiers struct {
	Shift bool `json:"shiftKey"`
	Ctrl  bool `json:"ctrlKey"`
	Meta  bool `json:"metaKey"`
	Alt   bool `json:"altKey"`
}

// PointerEvent is a raw pointer (or touch) event as captured by the host.
type PointerEvent struct {
	PointerID int
	ClientX   float64
	ClientY   float64
	Pressure  float64
	Modifiers
	Time time.Time
}

type PointerInfo struct {
	Target    string   `json:"target"`
	PointerID int      `json:"pointerId"`
	Origin    geom.Vec `json:"origin"`
	Point     geom.Vec `json:"point"`
	Pressure  float64  `json:"pressure"`
	Modifiers
}

type KeyEvent struct {
	Key string
	Modifiers
}

type KeyboardInfo struct {
	Key  string   `json:"key"`
	Keys []string `json:"keys"`
	Modifiers
}

type WheelInfo struct {
	Point geom.Vec `json:"point"`
	Modifiers
}

// State is everything the normaliser remembers between events.
type State struct {
	Darwin        bool
	ActivePointer int
	HasActive     bool
	PointerUpTime time.Time
	Pointer       *PointerInfo
	Points        map[int]PointerInfo
	Keys          map[string]bool
}

// NewState returns an empty state for the given platform.
func NewState(darwin bool) State {
	return State{Darwin: darwin, Points: map[int]PointerInfo{}, Keys: map[string]bool{}}
}

func (s State) clone() State {
	c := s
	c.Points = maps.Clone(s.Points)
	if c.Points == nil {
		c.Points = map[int]PointerInfo{}
	}
	c.Keys = maps.Clone(s.Keys)
	if c.Keys == nil {
		c.Keys = map[string]bool{}
	}
	return c
}

func (s State) modifiers(m Modifiers) Modifiers {
	if !s.Darwin {
		m.Meta = m.Ctrl
	}
	return m
}

// PointerDown starts tracking a pointer over target.
func PointerDown(s State, e PointerEvent, target string) (State, PointerInfo) {
	next := s.clone()
	p := point(e.ClientX, e.ClientY)
	info := PointerInfo{
		Target:    target,
		PointerID: e.PointerID,
		Origin:    p,
		Point:     p,
		Pressure:  pressure(e.Pressure),
		Modifiers: s.modifiers(e.Modifiers),
	}
	next.Points[e.PointerID] = info
	next.ActivePointer, next.HasActive = e.PointerID, true
	next.Pointer = &info
	return next, info
}

// TouchStart is PointerDown for touches; touch pressure is fixed.
func TouchStart(s State, e PointerEvent, target string) (State, PointerInfo) {
	e.Pressure = DefaultPressure
	return PointerDown(s, e, target)
}

// PointerEnter reports a pointer entering target without tracking it.
func PointerEnter(s State, e PointerEvent, target string) (State, PointerInfo) {
	next := s.clone()
	p := point(e.ClientX, e.ClientY)
	info := PointerInfo{
		Target:    target,
		PointerID: e.PointerID,
		Origin:    p,
		Point:     p,
		Pressure:  pressure(e.Pressure),
		Modifiers: s.modifiers(e.Modifiers),
	}
	next.Pointer = &info
	return next, info
}

// PointerMove updates the pointer's position, keeping its origin.
func PointerMove(s State, e PointerEvent, target string) (State, PointerInfo) {
	next := s.clone()
	prev, tracked := s.Points[e.PointerID]
	info := prev
	info.Target = target
	info.PointerID = e.PointerID
	info.Point = point(e.ClientX, e.ClientY)
	info.Pressure = pressure(e.Pressure)
	info.Modifiers = s.modifiers(e.Modifiers)
	if tracked {
		next.Points[e.PointerID] = info
	}
	next.Pointer = &info
	return next, info
}

// TouchMove is PointerMove for touches.
func TouchMove(s State, e PointerEvent) (State, PointerInfo) {
	prev := s.Points[e.PointerID]
	e.Pressure = DefaultPressure
	return PointerMove(s, e, prev.Target)
}

// PointerUp stops tracking the pointer. A press that barely moved arms the
// double-click window.
func PointerUp(s State, e PointerEvent, target string) (State, PointerInfo) {
	next := s.clone()
	prev, tracked := s.Points[e.PointerID]
	info := prev
	info.Target = target
	info.PointerID = e.PointerID
	info.Point = point(e.ClientX, e.ClientY)
	if !tracked {
		info.Origin = info.Point
	}
	info.Pressure = pressure(e.Pressure)
	info.Modifiers = s.modifiers(e.Modifiers)

	delete(next.Points, e.PointerID)
	next.HasActive = false
	next.ActivePointer = 0

	if IsStationary(info) {
		next.PointerUpTime = e.Time
	}
	next.Pointer = &info
	return next, info
}

// Wheel normalises a wheel event. It does not change the state.
func Wheel(s State, e PointerEvent) WheelInfo {
	return WheelInfo{Point: point(e.ClientX, e.ClientY), Modifiers: s.modifiers(e.Modifiers)}
}

func KeyDown(s State, e KeyEvent) (State, KeyboardInfo) {
	next := s.clone()
	next.Keys[e.Key] = true
	return next, KeyboardInfo{Key: e.Key, Keys: keys(next.Keys), Modifiers: s.modifiers(e.Modifiers)}
}

func KeyUp(s State, e KeyEvent) (State, KeyboardInfo) {
	next := s.clone()
	delete(next.Keys, e.Key)
	return next, KeyboardInfo{Key: e.Key, Keys: keys(next.Keys), Modifiers: s.modifiers(e.Modifiers)}
}

// IsDoubleClick reports whether the current press, at now, completes a
// double click.
func IsDoubleClick(s State, now time.Time) bool {
	if s.Pointer == nil || s.PointerUpTime.IsZero() {
		return false
	}
	return now.Sub(s.PointerUpTime) < DoubleClickDuration &&
		s.Pointer.Origin.Dist(s.Pointer.Point) < DoubleClickDistance
}

// IsStationary reports whether a press moved too little to be a drag.
func IsStationary(info PointerInfo) bool {
	return info.Origin.Dist(info.Point) < TapDistance
}

// Clear forgets tracked pointers but keeps keys and the double-click timer.
func Clear(s State) State {
	next := s.clone()
	next.HasActive = false
	next.ActivePointer = 0
	next.Pointer = nil
	next.Points = map[int]PointerInfo{}
	return next
}

func ResetDoubleClick(s State) State {
	next := s.clone()
	next.PointerUpTime = time.Time{}
	return next
}

// Reset returns the empty state, keeping the platform.
func Reset(s State) State {
	return NewState(s.Darwin)
}

// CommandKey names the primary shortcut modifier for display.
func CommandKey(darwin bool) string {
	if darwin {
		return "⌘"
	}
	return "Ctrl"
}

// point rounds client coordinates to five significant digits.
func point(x, y float64) geom.Vec {
	return geom.V(precision(x), precision(y))
}

func pressure(p float64) float64 {
	if p = precision(p); p == 0 {
		return DefaultPressure
	}
	return p
}

func precision(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 5, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func keys(m map[string]bool) []string {
	out := slices.Collect(maps.Keys(m))
	slices.Sort(out)
	return out
}
