package engine

import "time"

// CommandKind tags an inbound control command.
type CommandKind int

const (
	CommandSetBypass CommandKind = iota
	CommandSetParameter
	CommandSetParameters
	CommandReset
	CommandRequestMetering
)

// Command is one control-path message. Only the fields matching Kind are
// meaningful.
type Command struct {
	Kind   CommandKind
	Name   string
	Value  float64
	Values map[string]float64
	Bypass bool
}

// EventKind tags an outbound engine event.
type EventKind int

const (
	EventMetering EventKind = iota
	EventPerformance
	EventError
)

// Event is one message from the audio path back to the control path.
type Event struct {
	Kind        EventKind
	Metering    MeteringSnapshot
	Performance PerformanceStats
	Message     string
	Timestamp   time.Time
}

// Bridge carries commands from one control writer into the audio
// callback and events back out. Both directions are buffered channels;
// the audio side never blocks on either.
type Bridge struct {
	commands chan Command
	events   chan Event
}

const defaultBridgeCapacity = 64

// NewBridge creates a bridge with the given per-direction capacity.
// Non-positive capacities fall back to the default.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = defaultBridgeCapacity
	}

	return &Bridge{
		commands: make(chan Command, capacity),
		events:   make(chan Event, capacity),
	}
}

// Push enqueues a command without blocking. It returns ErrBridgeFull
// when the audio side has not drained fast enough.
func (b *Bridge) Push(cmd Command) error {
	select {
	case b.commands <- cmd:
		return nil
	default:
		return ErrBridgeFull
	}
}

// SetBypass enqueues a bypass toggle.
func (b *Bridge) SetBypass(bypass bool) error {
	return b.Push(Command{Kind: CommandSetBypass, Bypass: bypass})
}

// SetParameter enqueues a single parameter change.
func (b *Bridge) SetParameter(name string, value float64) error {
	return b.Push(Command{Kind: CommandSetParameter, Name: name, Value: value})
}

// SetParameters enqueues a batch parameter change. The map is applied in
// one quantum, so the batch takes effect atomically.
func (b *Bridge) SetParameters(values map[string]float64) error {
	return b.Push(Command{Kind: CommandSetParameters, Values: values})
}

// Reset enqueues a full state reset.
func (b *Bridge) Reset() error {
	return b.Push(Command{Kind: CommandReset})
}

// RequestMetering enqueues a metering request; the snapshot arrives as
// an EventMetering on Events.
func (b *Bridge) RequestMetering() error {
	return b.Push(Command{Kind: CommandRequestMetering})
}

// Events returns the outbound event channel.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// drain hands every pending command to apply. Called on the audio thread
// at the start of each quantum; never blocks.
func (b *Bridge) drain(apply func(Command)) {
	for {
		select {
		case cmd := <-b.commands:
			apply(cmd)
		default:
			return
		}
	}
}

// publish offers an event to the control path without blocking. Events
// are dropped when the consumer lags; metering is periodic, so a dropped
// snapshot is superseded by the next one.
func (b *Bridge) publish(ev Event) bool {
	select {
	case b.events <- ev:
		return true
	default:
		return false
	}
}
