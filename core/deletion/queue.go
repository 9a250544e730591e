// Package deletion implements a queue of deferred resource release actions.
//
// Resource-creating code pushes one Deleter right after a resource is
// acquired. At shutdown a single Flush runs every registered Deleter in
// reverse order of registration, so resources are released in the opposite
// order they were created in. A Deleter can be cancelled with its Handle
// before the flush when the resource is destroyed early.
//
// Removal is O(1) swap-remove: the last registered Deleter is moved into the
// removed slot. The moved Deleter therefore flushes at the removed Deleter's
// position, which changes its order relative to the Deleters registered
// between the two slots.
//
// A Queue is not safe for concurrent use.
package deletion

// Deleter releases exactly one resource. It captures everything it needs by
// value and must return normally, reporting failures on its own.
type Deleter func()

// Handle identifies a registered Deleter. Handle values are recycled once the
// Deleter they named has been removed or flushed.
type Handle uint64

// Queue holds Deleters in registration order. The zero value is an empty
// queue ready to use.
type Queue struct {
	deleters []Deleter
	// handles[i] owns deleters[i]
	handles []Handle
	slots   map[Handle]int

	free    []Handle
	counter Handle
}

// Push registers d and returns the Handle that can cancel it.
func (q *Queue) Push(d Deleter) Handle {
	if q.slots == nil {
		q.slots = make(map[Handle]int)
	}

	h := q.nextHandle()
	q.slots[h] = len(q.deleters)
	q.deleters = append(q.deleters, d)
	q.handles = append(q.handles, h)
	return h
}

// Remove cancels the Deleter registered under h without running it.
// Unknown, already removed or already flushed handles are ignored.
func (q *Queue) Remove(h Handle) {
	i, ok := q.slots[h]
	if !ok || len(q.deleters) == 0 {
		return
	}

	last := len(q.deleters) - 1
	if i != last {
		moved := q.handles[last]
		q.deleters[i] = q.deleters[last]
		q.handles[i] = moved
		q.slots[moved] = i
	}

	q.deleters[last] = nil
	q.deleters = q.deleters[:last]
	q.handles = q.handles[:last]
	delete(q.slots, h)

	q.free = append(q.free, h)
}

// Flush runs every registered Deleter once, last registered first, and
// resets the queue to its zero state. Deleters pushed while the flush is
// running are kept for the next flush.
func (q *Queue) Flush() {
	deleters := q.deleters
	q.reset()

	for i := len(deleters) - 1; i >= 0; i-- {
		deleters[i]()
	}
}

// Len returns the number of registered Deleters.
func (q *Queue) Len() int {
	return len(q.deleters)
}

func (q *Queue) nextHandle() Handle {
	if n := len(q.free); n > 0 {
		h := q.free[n-1]
		q.free = q.free[:n-1]
		return h
	}
	h := q.counter
	q.counter++
	return h
}

func (q *Queue) reset() {
	q.deleters = nil
	q.handles = nil
	q.slots = nil
	q.free = nil
	q.counter = 0
}
