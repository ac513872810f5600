package utils

import (
	"sync"

	"watershed-sync/src/models"
)

// -----------------------------------------------------------------------------
// EventBuffer is a fixed-size circular buffer of run events. Writers keep
// appending forever, readers get the newest window. Safe for concurrent
// use, the hub reads snapshots while a run is still appending.
// -----------------------------------------------------------------------------

type EventBuffer struct {
	mu       sync.RWMutex
	data     []models.MProgressEvent
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewEventBuffer creates a new buffer with fixed capacity
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = 256
	}

	return &EventBuffer{
		data:     make([]models.MProgressEvent, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds an event, overwriting the oldest once the buffer is full.
func (rb *EventBuffer) Append(event models.MProgressEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.index] = event
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest events, oldest first.
func (rb *EventBuffer) GetLatest(n int) []models.MProgressEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 || n <= 0 {
		return []models.MProgressEvent{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MProgressEvent, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all buffered events in insertion order (oldest to newest)
func (rb *EventBuffer) GetAll() []models.MProgressEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return []models.MProgressEvent{}
	}

	result := make([]models.MProgressEvent, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	}

	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *EventBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *EventBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *EventBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.index = 0
	rb.size = 0
}
