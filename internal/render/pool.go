package render

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool recycles frames of one size. A renderer draws every frame at
// the same size, so exports of many slides allocate only as many frames as
// there are workers.
type FramePool struct {
	bounds    image.Rectangle
	frames    sync.Pool
	allocated atomic.Int64
}

func NewFramePool(width, height int) *FramePool {
	p := &FramePool{bounds: image.Rect(0, 0, width, height)}
	p.frames.New = func() any {
		p.allocated.Add(1)
		return image.NewRGBA(p.bounds)
	}
	return p
}

func (p *FramePool) Bounds() image.Rectangle {
	return p.bounds
}

// Get returns a frame with stale pixels; callers paint over all of it.
func (p *FramePool) Get() *image.RGBA {
	return p.frames.Get().(*image.RGBA)
}

// Put hands a frame back. Frames of any other size are left to the GC.
func (p *FramePool) Put(frame *image.RGBA) {
	if frame == nil || frame.Rect != p.bounds {
		return
	}
	p.frames.Put(frame)
}

// Allocated counts frames the pool had to create.
func (p *FramePool) Allocated() int64 {
	return p.allocated.Load()
}
