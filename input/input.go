// Package input merges keyboard and game controller input for the guest.
//
// Keyboard transitions are forwarded one by one as they happen. Controllers
// are classified once when they connect into a closed set of mapping kinds
// and then polled once per frame; the per-controller results are OR-ed into
// a single [Snapshot].
//
// An Aggregator is not safe for concurrent use.
package input

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Snapshot is the merged controller input for one frame.
type Snapshot struct {
	Left  bool
	Right bool
	Shoot bool
}

// Or merges two snapshots.
func (s Snapshot) Or(o Snapshot) Snapshot {
	return Snapshot{
		Left:  s.Left || o.Left,
		Right: s.Right || o.Right,
		Shoot: s.Shoot || o.Shoot,
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("left=%t right=%t shoot=%t", s.Left, s.Right, s.Shoot)
}

// MappingKind classifies how a controller lays out its axes and buttons.
type MappingKind int

const (
	// Standard follows the W3C standard gamepad layout.
	Standard MappingKind = iota + 1
	// AxisBased reports the d-pad on axis 6.
	AxisBased
)

const (
	standardLeft  = 14
	standardRight = 15
	shootButton   = 0
	dpadAxis      = 6
	axisThreshold = 0.5
)

func (k MappingKind) String() string {
	switch k {
	case Standard:
		return "standard"
	case AxisBased:
		return "axis"
	default:
		return fmt.Sprintf("MappingKind(%d)", int(k))
	}
}

// Decode maps raw controller values to a snapshot. Missing axes read as 0
// and missing buttons as released.
func (k MappingKind) Decode(axes []float64, buttons []bool) Snapshot {
	shoot := button(buttons, shootButton)
	switch k {
	case Standard:
		return Snapshot{
			Left:  button(buttons, standardLeft),
			Right: button(buttons, standardRight),
			Shoot: shoot,
		}
	case AxisBased:
		a := axis(axes, dpadAxis)
		return Snapshot{Left: a < -axisThreshold, Right: a > axisThreshold, Shoot: shoot}
	default:
		return Snapshot{}
	}
}

func button(b []bool, i int) bool {
	return i < len(b) && b[i]
}

func axis(a []float64, i int) float64 {
	if i < len(a) {
		return a[i]
	}
	return 0
}

// ControllerState is the last raw reading of an active controller.
type ControllerState struct {
	ID      int
	Name    string
	Kind    MappingKind
	Axes    []float64
	Buttons []bool
}

// Device is a physical or virtual game controller.
type Device interface {
	ID() int
	Name() string
	// Standard reports whether the device advertises the standard mapping.
	Standard() bool
	// Read stores the current axis and button values in st.
	Read(st *ControllerState)
}

// DefaultAxisDevices are controller names known to report the d-pad on axis 6.
var DefaultAxisDevices = []string{
	"Xbox 360",
	"X-Box 360",
	"Logitech Dual Action",
	"USB Gamepad",
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

// WithAxisDevices replaces the allow list of AxisBased controller names.
// Matching is a case-insensitive substring test against the device name.
func WithAxisDevices(names ...string) Option {
	return func(a *Aggregator) {
		a.allow = a.allow[:0]
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				a.allow = append(a.allow, allowEntry{match: strings.ToLower(n), kind: AxisBased})
			}
		}
	}
}

// WithActiveHook registers fn to receive the active controller count after
// every connect or disconnect.
func WithActiveHook(fn func(int)) Option {
	return func(a *Aggregator) {
		a.onActive = fn
	}
}

type allowEntry struct {
	match string
	kind  MappingKind
}

type controller struct {
	dev   Device
	state ControllerState
}

// Aggregator tracks connected controllers and merges their input.
type Aggregator struct {
	allow    []allowEntry
	active   []*controller
	log      *zap.Logger
	onActive func(int)
}

// NewAggregator returns an aggregator with no active controllers.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{log: zap.NewNop()}
	WithAxisDevices(DefaultAxisDevices...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify returns the mapping kind for d, or false when d is not supported.
func (a *Aggregator) Classify(d Device) (MappingKind, bool) {
	if d.Standard() {
		return Standard, true
	}
	name := strings.ToLower(d.Name())
	for _, e := range a.allow {
		if strings.Contains(name, e.match) {
			return e.kind, true
		}
	}
	return 0, false
}

// Connect classifies d and adds it to the active set. Unsupported devices
// are logged and ignored. Connecting an id that is already active replaces
// the previous entry.
func (a *Aggregator) Connect(d Device) (MappingKind, bool) {
	kind, ok := a.Classify(d)
	if !ok {
		a.log.Warn("ignoring controller with unknown mapping",
			zap.Int("id", d.ID()),
			zap.String("name", d.Name()))
		return 0, false
	}
	a.remove(d.ID())
	a.active = append(a.active, &controller{
		dev:   d,
		state: ControllerState{ID: d.ID(), Name: d.Name(), Kind: kind},
	})
	a.log.Info("controller connected",
		zap.Int("id", d.ID()),
		zap.String("name", d.Name()),
		zap.Stringer("mapping", kind))
	a.notify()
	return kind, true
}

// Disconnect removes the controller with id. It reports whether it was active.
func (a *Aggregator) Disconnect(id int) bool {
	if !a.remove(id) {
		return false
	}
	a.log.Info("controller disconnected", zap.Int("id", id))
	a.notify()
	return true
}

func (a *Aggregator) remove(id int) bool {
	for i, c := range a.active {
		if c.state.ID == id {
			a.active = append(a.active[:i], a.active[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Aggregator) notify() {
	if a.onActive != nil {
		a.onActive(len(a.active))
	}
}

// Poll reads every active controller and returns the merged snapshot.
func (a *Aggregator) Poll() Snapshot {
	var snap Snapshot
	for _, c := range a.active {
		c.dev.Read(&c.state)
		snap = snap.Or(c.state.Kind.Decode(c.state.Axes, c.state.Buttons))
	}
	return snap
}

// Active returns a copy of the active controller states in connect order.
func (a *Aggregator) Active() []ControllerState {
	out := make([]ControllerState, len(a.active))
	for i, c := range a.active {
		st := c.state
		st.Axes = append([]float64(nil), c.state.Axes...)
		st.Buttons = append([]bool(nil), c.state.Buttons...)
		out[i] = st
	}
	return out
}
