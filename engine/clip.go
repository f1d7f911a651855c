package engine

import (
	"time"

	"github.com/lumenforge/lumencore/param"
)

// ClipEvent is one recorded parameter write in a clip: at OffsetMs into
// the clip's timeline, write Value to the parameter resolved by Handle.
//
// This resolves spec.md §9's open question ("per-channel lists of
// replayable parameter-change logs with start/stop/loop, without fixing
// the event serialisation — treat as extension point") concretely but
// minimally: offset + handle + value, nothing more. Grounded on
// other_examples' lacylights-go fade engine, whose activeFade advances a
// set of pending channel writes against an elapsed/duration ratio each
// tick (processFades) — adapted here from continuous interpolated fades
// to discrete timestamped writes, since a clip event is a single value
// change rather than an interpolation between two values.
type ClipEvent struct {
	OffsetMs int64
	Handle   Handle
	Value    any
}

// Clip is an ordered, replayable log of parameter-change events.
type Clip struct {
	Name   string
	Events []ClipEvent
	Loop   bool
	Length time.Duration // 0 means "ends with the last event"
}

func (c *Clip) length() time.Duration {
	if c.Length > 0 {
		return c.Length
	}
	var max int64
	for _, e := range c.Events {
		if e.OffsetMs > max {
			max = e.OffsetMs
		}
	}
	return time.Duration(max) * time.Millisecond
}

// ClipPlayer owns a bus's clip list and the play-head of whichever clip is
// currently playing.
type ClipPlayer struct {
	Clips []*Clip

	resolver HandleResolver
	playing  *Clip
	elapsed  time.Duration
	nextIdx  int
	running  bool
}

// HandleResolver resolves a stable parameter Handle to a live parameter,
// the same resolution path commands use (§3/§8's id-remap law).
type HandleResolver interface {
	ResolveParameter(h Handle) (param.Parameter, bool)
}

func NewClipPlayer(resolver HandleResolver, clips []*Clip) *ClipPlayer {
	return &ClipPlayer{resolver: resolver, Clips: clips}
}

// Play starts playback of the named clip from its beginning.
func (cp *ClipPlayer) Play(name string) bool {
	for _, c := range cp.Clips {
		if c.Name == name {
			cp.playing = c
			cp.elapsed = 0
			cp.nextIdx = 0
			cp.running = true
			return true
		}
	}
	return false
}

func (cp *ClipPlayer) Stop() {
	cp.running = false
	cp.playing = nil
}

func (cp *ClipPlayer) Playing() *Clip { return cp.playing }
func (cp *ClipPlayer) Running() bool  { return cp.running }

// Advance applies every event whose offset has come due since the last
// call, then loops or stops at the clip's length.
func (cp *ClipPlayer) Advance(dt time.Duration) {
	if !cp.running || cp.playing == nil {
		return
	}
	cp.elapsed += dt
	elapsedMs := cp.elapsed.Milliseconds()

	for cp.nextIdx < len(cp.playing.Events) && cp.playing.Events[cp.nextIdx].OffsetMs <= elapsedMs {
		ev := cp.playing.Events[cp.nextIdx]
		cp.applyEvent(ev)
		cp.nextIdx++
	}

	length := cp.playing.length()
	if length > 0 && cp.elapsed >= length {
		if cp.playing.Loop {
			cp.elapsed -= length
			cp.nextIdx = 0
		} else {
			cp.running = false
		}
	}
}

func (cp *ClipPlayer) applyEvent(ev ClipEvent) {
	p, ok := cp.resolver.ResolveParameter(ev.Handle)
	if !ok {
		return
	}
	switch target := p.(type) {
	case *param.BoundedParam:
		if v, ok := ev.Value.(float64); ok {
			target.SetValue(v)
		}
	case *param.CompoundParam:
		if v, ok := ev.Value.(float64); ok {
			target.SetBase(v)
		}
	case *param.BoolParam:
		if v, ok := ev.Value.(bool); ok {
			target.SetValue(v)
		}
	case *param.DiscreteParam:
		if v, ok := ev.Value.(int); ok {
			target.SetValue(v)
		}
	case *param.StringParam:
		if v, ok := ev.Value.(string); ok {
			target.SetValue(v)
		}
	case *param.EnumParam:
		if v, ok := ev.Value.(int); ok {
			target.SetIndex(v)
		}
	}
}
