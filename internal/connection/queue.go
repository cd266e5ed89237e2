package connection

// Queue is a bounded FIFO of outbound frames awaiting delivery. When full,
// the oldest entry is evicted per insert so the most recent max entries
// survive, preserving FIFO delivery order for whatever remains.
//
// Queue is not safe for concurrent use; the Manager serializes all access.
type Queue struct {
	max     int
	entries []QueuedMessage
}

// NewQueue creates a queue bounded at max entries. max must be >= 1.
func NewQueue(max int) *Queue {
	return &Queue{max: max}
}

// Enqueue appends a message, evicting the oldest entry first if the queue is
// full. It reports whether an eviction occurred.
func (q *Queue) Enqueue(msg QueuedMessage) bool {
	evicted := false
	if len(q.entries) >= q.max {
		q.entries = q.entries[1:]
		evicted = true
	}
	q.entries = append(q.entries, msg)
	return evicted
}

// Flush returns all queued messages in enqueue order and clears the queue.
func (q *Queue) Flush() []QueuedMessage {
	out := q.entries
	q.entries = nil
	return out
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.entries)
}

// SetMax changes the bound, evicting oldest entries if the queue currently
// exceeds it. max must be >= 1.
func (q *Queue) SetMax(max int) {
	q.max = max
	if over := len(q.entries) - max; over > 0 {
		q.entries = q.entries[over:]
	}
}
