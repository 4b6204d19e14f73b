// Package engine orchestrates the real-time dynamics processors: a bus
// compressor and a brick-wall true-peak limiter driven once per
// fixed-size audio quantum. All DSP state is owned by the audio callback;
// a control path talks to it exclusively through a Bridge.
package engine

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-dynamics/dsp/core"
)

// renderer is the engine-specific part behind the shared quantum
// contract.
type renderer interface {
	// render processes one quantum. Buffers are pre-validated.
	render(input, output [][]float64) error
	// applyParam reacts to a constrained parameter write.
	applyParam(p Param, value float64)
	// resetState zeroes all DSP state without deallocating buffers.
	resetState()
	// fillSnapshot adds engine-specific meters to a snapshot.
	fillSnapshot(s *MeteringSnapshot)
}

// engineCore implements the shared quantum contract: command draining,
// bypass, fault passthrough, metering and performance accounting.
type engineCore struct {
	cfg    core.ProcessorConfig
	schema Schema
	params map[Param]float64
	bypass bool

	bridge *Bridge
	r      renderer

	meter *blockMeter
	perf  *perfStats
}

func newEngineCore(cfg core.ProcessorConfig, schema Schema, r renderer) *engineCore {
	return &engineCore{
		cfg:    cfg,
		schema: schema,
		params: schema.Defaults(),
		bridge: NewBridge(0),
		r:      r,
		meter:  newBlockMeter(cfg.BlockSize),
		perf:   newPerfStats(cfg.SampleRate, cfg.BlockSize),
	}
}

// Bridge returns the control bridge for this engine instance.
func (e *engineCore) Bridge() *Bridge { return e.bridge }

// Config returns the processor configuration.
func (e *engineCore) Config() core.ProcessorConfig { return e.cfg }

// SetBypass toggles passthrough. Metering keeps running while bypassed.
func (e *engineCore) SetBypass(bypass bool) { e.bypass = bypass }

// Bypassed reports whether the engine is in passthrough.
func (e *engineCore) Bypassed() bool { return e.bypass }

// SetParameter validates name against the schema, clamps value to its
// documented range and applies it. Unknown names are rejected and leave
// all state untouched.
func (e *engineCore) SetParameter(name string, value float64) error {
	p, err := ParseParam(name)
	if err != nil {
		return err
	}

	constrained, err := e.schema.Constrain(p, value)
	if err != nil {
		return err
	}

	e.params[p] = constrained
	e.r.applyParam(p, constrained)

	return nil
}

// SetParameters applies a batch of parameter writes. Invalid entries are
// skipped; the first error is returned after all valid entries applied.
func (e *engineCore) SetParameters(values map[string]float64) error {
	var firstErr error

	for name, value := range values {
		if err := e.SetParameter(name, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Parameter returns the current constrained value of p.
func (e *engineCore) Parameter(p Param) float64 { return e.params[p] }

// Reset zeroes all DSP state, meters and performance counters. Buffers
// stay allocated.
func (e *engineCore) Reset() {
	e.r.resetState()
	e.meter.reset()
	e.perf.reset()
}

// Metering returns a point-in-time snapshot of the meters.
func (e *engineCore) Metering() MeteringSnapshot {
	var s MeteringSnapshot

	e.meter.fill(&s)
	e.r.fillSnapshot(&s)

	return s
}

// Performance returns accumulated quantum timing statistics.
func (e *engineCore) Performance() PerformanceStats {
	return e.perf.stats()
}

// ProcessBlock runs one quantum. Pending control commands are drained
// first so a quantum always sees one consistent parameter set. The
// return value is false only when the buffer shapes make processing
// impossible; recoverable faults fall back to passthrough for the
// quantum and report an error event instead.
func (e *engineCore) ProcessBlock(input, output [][]float64) bool {
	start := time.Now()

	meterRequested := false

	e.bridge.drain(func(cmd Command) {
		switch cmd.Kind {
		case CommandSetBypass:
			e.bypass = cmd.Bypass
		case CommandSetParameter:
			if err := e.SetParameter(cmd.Name, cmd.Value); err != nil {
				e.publishError(err.Error())
			}
		case CommandSetParameters:
			if err := e.SetParameters(cmd.Values); err != nil {
				e.publishError(err.Error())
			}
		case CommandReset:
			e.Reset()
		case CommandRequestMetering:
			meterRequested = true
		}
	})

	if !validBlock(input, e.cfg) || !validBlock(output, e.cfg) {
		passthrough(input, output)
		e.publishError(ErrInvalidBlock.Error())

		return false
	}

	if e.bypass {
		passthrough(input, output)
		e.meter.update(input)
	} else {
		e.renderGuarded(input, output)
		e.meter.update(output)
	}

	e.perf.record(float64(time.Since(start)) / float64(time.Millisecond))

	if meterRequested {
		e.bridge.publish(Event{Kind: EventMetering, Metering: e.Metering(), Timestamp: time.Now()})
		e.bridge.publish(Event{Kind: EventPerformance, Performance: e.perf.stats(), Timestamp: time.Now()})
	}

	return true
}

// renderGuarded absorbs any fault from the renderer: the quantum falls
// back to passthrough and an error event is published, but the engine
// keeps running.
func (e *engineCore) renderGuarded(input, output [][]float64) {
	defer func() {
		if r := recover(); r != nil {
			passthrough(input, output)
			e.publishError(fmt.Sprintf("processing fault: %v", r))
		}
	}()

	if err := e.r.render(input, output); err != nil {
		passthrough(input, output)
		e.publishError(err.Error())
	}
}

func (e *engineCore) publishError(msg string) {
	e.bridge.publish(Event{Kind: EventError, Message: msg, Timestamp: time.Now()})
}

func validBlock(channels [][]float64, cfg core.ProcessorConfig) bool {
	if len(channels) < cfg.Channels {
		return false
	}

	for _, ch := range channels[:cfg.Channels] {
		if len(ch) != cfg.BlockSize {
			return false
		}
	}

	return true
}

func passthrough(input, output [][]float64) {
	for ch := range output {
		if ch < len(input) {
			core.CopyInto(output[ch], input[ch])
		} else {
			core.Zero(output[ch])
		}
	}
}
