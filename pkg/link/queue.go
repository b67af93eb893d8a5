package link

import (
	"container/list"
	"sync"
)

// Queue is the ordered buffer of outbound frames.
// It's unbounded and safe for concurrent use.
type Queue struct {
	frames list.List
	lock   sync.Mutex
}

// Enqueue appends a frame, or puts it in front if immediate.
func (q *Queue) Enqueue(frame []byte, immediate bool) {
	q.lock.Lock()
	if immediate {
		q.frames.PushFront(frame)
	} else {
		q.frames.PushBack(frame)
	}
	q.lock.Unlock()
}

// Dequeue removes and returns the head frame.
func (q *Queue) Dequeue() ([]byte, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	elm := q.frames.Front()
	if elm == nil {
		return nil, false
	}
	q.frames.Remove(elm)
	return elm.Value.([]byte), true
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.frames.Len()
}

// Clear discards all frames and returns how many were dropped.
func (q *Queue) Clear() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	n := q.frames.Len()
	q.frames.Init()
	return n
}
