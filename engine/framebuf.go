package engine

import (
	"sync"

	"github.com/lumenforge/lumencore/capability"
)

// DoubleBuffer is the lock-free-when-unwatched render/copy swap described
// in spec.md §4.7. The engine writes only render; Flip() swaps render and
// copy under a buffer-wide lock so the *previous* render becomes a stable
// copy for readers. If no reader ever calls Snapshot, Flip is uncontended and
// effectively lock-free.
//
// Grounded on the teacher's audio.Engine.GetWaveform, which already
// copies a ring buffer out from under a dedicated mutex into a
// caller-owned slice for visualization — generalized here from one ring
// buffer to the render/copy swap pair the spec requires, plus a second
// pair for the cue buffer and its active flag.
type DoubleBuffer struct {
	mu sync.Mutex

	render capability.Buffer
	copy_  capability.Buffer

	cueRender capability.Buffer
	cueCopy   capability.Buffer
	cueActive bool
}

func NewDoubleBuffer(pointCount int) *DoubleBuffer {
	return &DoubleBuffer{
		render:    make(capability.Buffer, pointCount),
		copy_:     make(capability.Buffer, pointCount),
		cueRender: make(capability.Buffer, pointCount),
		cueCopy:   make(capability.Buffer, pointCount),
	}
}

// Render returns the buffer the engine is allowed to write this frame.
// Only the engine thread may call this.
func (d *DoubleBuffer) Render() capability.Buffer { return d.render }

// CueRender returns the cue buffer the engine is allowed to write this
// frame.
func (d *DoubleBuffer) CueRender() capability.Buffer { return d.cueRender }

// Flip swaps render and copy (and the cue pair) under the buffer lock,
// publishing a happens-before between this frame's writes to render and
// any subsequent reader of Snapshot.
func (d *DoubleBuffer) Flip(cueActive bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.render, d.copy_ = d.copy_, d.render
	d.cueRender, d.cueCopy = d.cueCopy, d.cueRender
	d.cueActive = cueActive
}

// Snapshot returns a private copy of the current "copy" side for a reader
// thread (UI/output stage), plus the cue buffer and whether cue is active
// this frame.
func (d *DoubleBuffer) Snapshot() (main capability.Buffer, cue capability.Buffer, cueActive bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	main = append(capability.Buffer(nil), d.copy_...)
	cue = append(capability.Buffer(nil), d.cueCopy...)
	return main, cue, d.cueActive
}
