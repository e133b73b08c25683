package behaviour

// ActionQueue is a FIFO of pending actions owned by one behaviour.
// It is not safe for concurrent use.
type ActionQueue struct {
	items []Action
	head  int
}

// Push appends an action.
func (q *ActionQueue) Push(a Action) {
	q.items = append(q.items, a)
}

// Pop removes and returns the oldest action.
func (q *ActionQueue) Pop() (Action, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}

	a := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 32 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return a, true
}

// Len returns the number of pending actions.
func (q *ActionQueue) Len() int {
	return len(q.items) - q.head
}
