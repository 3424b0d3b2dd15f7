// Package cache owns the per-stream preview image handles. At most one live
// handle exists per stream id; a newer image releases the previous handle.
package cache

import (
	"sync"
)

// Handle is an owned reference to one decoded preview frame. After Release
// the bytes are gone and Bytes returns nil.
type Handle struct {
	streamID string
	seq      uint64

	mu       sync.Mutex
	data     []byte
	released bool
}

// Bytes returns the image bytes, or nil if the handle has been released.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	return h.data
}

// StreamID returns the owning stream id.
func (h *Handle) StreamID() string { return h.streamID }

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// release frees the underlying buffer. Safe to call more than once, the
// second call is a no-op.
func (h *Handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.data = nil
}

// ImageCache holds the latest preview frame per stream id behind a single
// lock: Put's read-modify-release sequence is not safe under concurrent
// writers for the same key.
type ImageCache struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func New() *ImageCache {
	return &ImageCache{
		handles: make(map[string]*Handle),
	}
}

// Put swaps in a new handle for streamID and releases the previous one, if
// any. Fetch completions can arrive out of issue order, поэтому каждая
// попытка несёт монотонный seq: устаревшее завершение отбрасывается, чтобы
// медленный ранний fetch не перезаписал более свежий кадр.
// Returns the stored handle, or nil when the completion was discarded.
func (c *ImageCache) Put(streamID string, seq uint64, data []byte) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.handles[streamID]
	if prev != nil && prev.seq > seq {
		return nil
	}

	h := &Handle{streamID: streamID, seq: seq, data: data}
	c.handles[streamID] = h
	if prev != nil {
		prev.release()
	}
	return h
}

// Get returns the live handle for streamID, or nil if none exists.
func (c *ImageCache) Get(streamID string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[streamID]
}

// Remove releases and drops the handle for a stream deleted from the roster.
// A no-op for unknown ids.
func (c *ImageCache) Remove(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handles[streamID]; ok {
		h.release()
		delete(c.handles, streamID)
	}
}

// Clear releases every handle. Called at poller shutdown.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, h := range c.handles {
		h.release()
		delete(c.handles, id)
	}
}

// Len returns the number of live handles.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
