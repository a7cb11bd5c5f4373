package engine

import (
	"container/heap"

	"github.com/cbegin/keyfall-go/internal/notebuf"
)

type timerKind int

const (
	timerPending  timerKind = iota // delay window elapsed; commit the press
	timerFinalize                  // short-note growth elapsed; finalize
)

// timer is owned by exactly one key state. index is its heap position, -1
// once fired or cancelled.
type timer struct {
	due     float64
	seq     uint64
	kind    timerKind
	key     string
	pressID uint64
	noteID  notebuf.NoteID
	index   int
}

// timerQueue orders timers by due time, then by scheduling order.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (q *timerQueue) schedule(t *timer) {
	heap.Push(q, t)
}

func (q *timerQueue) cancel(t *timer) {
	if t == nil || t.index < 0 {
		return
	}
	heap.Remove(q, t.index)
}

// popDue removes and returns the earliest timer due at or before now.
func (q *timerQueue) popDue(now float64) *timer {
	if len(*q) == 0 || (*q)[0].due > now {
		return nil
	}
	return heap.Pop(q).(*timer)
}

func (q timerQueue) next() (float64, bool) {
	if len(q) == 0 {
		return 0, false
	}
	return q[0].due, true
}

func (q *timerQueue) reset() {
	for _, t := range *q {
		t.index = -1
	}
	*q = (*q)[:0]
}
