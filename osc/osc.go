// Package osc implements spec.md §6's OSC addressing: a canonical
// `/root/sub/.../param` path dispatched to a parameter's type-appropriate
// setter, with arrays addressed by 1-based index. No OSC transport or
// bundle-parsing library exists anywhere in the retrieval pack, so this
// package is the address *router* only — it consumes an already-decoded
// Message and never touches a wire format. A host wires in whatever OSC
// server library it likes and feeds this package Messages.
package osc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
)

// Message is the minimal shape this package needs from a decoded OSC
// packet: a slash-separated address and its typed argument list.
type Message struct {
	Address string
	Args    []any
}

// nodeBus is satisfied by *engine.Channel and *engine.GroupChannel (see
// engine/persistable.go's Node() accessors) — the concrete types behind
// engine.IdentifiedBus that expose their underlying path-addressable
// Component.
type nodeBus interface {
	Node() *engine.Component
}

// Router dispatches decoded Messages to parameters resolved by walking
// the engine tree from its two top-level entry points, `channels`
// (1-based index into the mixer's bus list) and `master`, one path
// segment at a time from there. Router also queues messages received off
// the engine thread (e.g. from a host's OSC server goroutine) and drains
// them on DispatchInbound, implementing engine.InboundDispatcher.
type Router struct {
	mixer *engine.Mixer
	inbox chan Message
}

func NewRouter(mixer *engine.Mixer) *Router {
	return &Router{mixer: mixer, inbox: make(chan Message, 256)}
}

// Post queues msg for dispatch at the next DispatchInbound call. Safe to
// call from any goroutine; drops the message rather than block if the
// queue is full.
func (r *Router) Post(msg Message) {
	select {
	case r.inbox <- msg:
	default:
	}
}

// DispatchInbound drains every message queued since the last call and
// applies each via Dispatch, implementing engine.InboundDispatcher
// (spec.md §4.6 step 1).
func (r *Router) DispatchInbound() {
	for {
		select {
		case msg := <-r.inbox:
			_ = r.Dispatch(msg)
		default:
			return
		}
	}
}

// Dispatch resolves msg.Address to a parameter and writes msg.Args[0]
// into it via the parameter's type-appropriate setter. Returns
// enginerr.InvalidCommand if the address does not resolve or the
// argument's type does not match the parameter's kind.
func (r *Router) Dispatch(msg Message) error {
	if len(msg.Args) == 0 {
		return enginerr.New(enginerr.InvalidCommand, "osc message carries no arguments")
	}
	p, err := r.Resolve(msg.Address)
	if err != nil {
		return err
	}
	return setFromArg(p, msg.Args[0])
}

// Resolve walks an address from its entry point ("channels/<n>" or
// "master") down to the parameter it names, without writing to it.
// Exported so a host can read a parameter's current value back out before
// deciding whether to apply an incoming write (e.g. OSC query/response
// patterns).
func (r *Router) Resolve(address string) (param.Parameter, error) {
	segs := splitPath(address)
	if len(segs) == 0 {
		return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("empty osc address %q", address))
	}

	cur, rest, err := r.entryPoint(address, segs)
	if err != nil {
		return nil, err
	}
	segs = rest

	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		last := i == len(segs)-1

		if last {
			if p, ok := cur.Parameter(seg); ok {
				return p, nil
			}
		}

		if child, ok := cur.Child(seg); ok {
			cur = child
			continue
		}

		if isArraySegment(cur, seg) {
			if i+1 >= len(segs) {
				return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: array segment %q missing index", address, seg))
			}
			i++
			idx, err := strconv.Atoi(segs[i])
			if err != nil {
				return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: %q is not an index", address, segs[i]))
			}
			arr := cur.ArrayChildren(seg)
			if idx < 1 || idx > len(arr) {
				return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: index %d out of range (1..%d)", address, idx, len(arr)))
			}
			cur = arr[idx-1]
			continue
		}

		return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: no child, array, or parameter named %q", address, seg))
	}

	return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q does not name a parameter", address))
}

// entryPoint consumes the leading "channels/<n>" or "master" segments of
// an address and returns the Component they name, plus whatever segments
// remain to be walked underneath it.
func (r *Router) entryPoint(address string, segs []string) (*engine.Component, []string, error) {
	switch segs[0] {
	case "master":
		if r.mixer.Master == nil {
			return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: no master channel", address))
		}
		return r.mixer.Master.Node(), segs[1:], nil
	case "channels":
		if len(segs) < 2 {
			return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: channels segment missing index", address))
		}
		idx, err := strconv.Atoi(segs[1])
		if err != nil {
			return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: %q is not an index", address, segs[1]))
		}
		if idx < 1 || idx > len(r.mixer.Buses) {
			return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: channel index %d out of range (1..%d)", address, idx, len(r.mixer.Buses)))
		}
		bus, ok := r.mixer.Buses[idx-1].(nodeBus)
		if !ok {
			return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: channel %d has no addressable node", address, idx))
		}
		return bus.Node(), segs[2:], nil
	default:
		return nil, nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("osc address %q: must start with \"channels\" or \"master\"", address))
	}
}

func isArraySegment(c *engine.Component, seg string) bool {
	for _, s := range c.ArraySegments() {
		if s == seg {
			return true
		}
	}
	return false
}

func splitPath(address string) []string {
	parts := strings.Split(address, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setFromArg type-switches on the resolved parameter's concrete kind and
// coerces arg into the value it expects, mirroring the same
// per-kind dispatch command.applyValue and persist.applyPrimitive use.
func setFromArg(p param.Parameter, arg any) error {
	switch target := p.(type) {
	case *param.BoundedParam:
		v, ok := floatArg(arg)
		if !ok {
			return enginerr.New(enginerr.InvalidCommand, "osc arg is not numeric for BoundedParam")
		}
		target.SetValue(v)
	case *param.CompoundParam:
		v, ok := floatArg(arg)
		if !ok {
			return enginerr.New(enginerr.InvalidCommand, "osc arg is not numeric for CompoundParam")
		}
		target.SetBase(v)
	case *param.BoolParam:
		v, ok := boolArg(arg)
		if !ok {
			return enginerr.New(enginerr.InvalidCommand, "osc arg is not boolean for BoolParam")
		}
		target.SetValue(v)
	case *param.DiscreteParam:
		v, ok := intArg(arg)
		if !ok || !target.SetValue(v) {
			return enginerr.New(enginerr.InvalidCommand, "osc arg out of range for DiscreteParam")
		}
	case *param.StringParam:
		v, ok := arg.(string)
		if !ok {
			return enginerr.New(enginerr.InvalidCommand, "osc arg is not a string for StringParam")
		}
		target.SetValue(v)
	case *param.EnumParam:
		v, ok := intArg(arg)
		if !ok || !target.SetIndex(v) {
			return enginerr.New(enginerr.InvalidCommand, "osc arg out of range for EnumParam")
		}
	default:
		return enginerr.New(enginerr.InvalidCommand, "parameter kind does not support osc dispatch")
	}
	return nil
}

func floatArg(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func boolArg(v any) (bool, bool) {
	switch n := v.(type) {
	case bool:
		return n, true
	case int32:
		return n != 0, true
	case float32:
		return n != 0, true
	}
	return false, false
}
