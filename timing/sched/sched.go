// Package sched keeps the global cycle count and the queue of pending
// hardware events, with at most one pending event per event kind.
package sched

import (
	"sort"

	"github.com/sarchlab/akita/v4/sim"
)

// EventType names a class of hardware event.
type EventType int

const (
	EventTimerOverflow EventType = iota
)

// EventKind identifies one schedulable event slot. Scheduling a kind
// that is already pending replaces the earlier instance.
type EventKind struct {
	Type EventType

	// Core and Index qualify the type, e.g. which CPU's timer block
	// and which timer within it.
	Core  int
	Index int
}

// HandlerFunc runs when an event fires. late is the number of cycles
// the current time has already moved past the event's due cycle.
type HandlerFunc func(late uint64)

// event adapts one pending slot to the akita event interface so it can
// live in a sim.EventQueue.
type event struct {
	kind     EventKind
	cycle    uint64
	seq      uint64
	fn       HandlerFunc
	canceled bool
	owner    *Scheduler
}

func (e *event) Time() sim.VTimeInSec { return sim.VTimeInSec(e.cycle) }
func (e *event) Handler() sim.Handler { return e.owner }
func (e *event) IsSecondary() bool    { return false }

// Scheduler is the shared cycle counter plus the pending event queue.
// It is not safe for concurrent use; all components of one machine run
// on one goroutine.
type Scheduler struct {
	cycle uint64
	seq   uint64

	queue   sim.EventQueue
	pending map[EventKind]*event
}

// New creates an empty Scheduler at cycle zero.
func New() *Scheduler {
	return &Scheduler{
		queue:   sim.NewEventQueue(),
		pending: make(map[EventKind]*event),
	}
}

// Cycle returns the current cycle count.
func (s *Scheduler) Cycle() uint64 { return s.cycle }

// Schedule registers fn to fire delay cycles from now. A pending event
// of the same kind is replaced.
func (s *Scheduler) Schedule(kind EventKind, delay uint64, fn HandlerFunc) {
	s.ScheduleAt(kind, s.cycle+delay, fn)
}

// ScheduleAt registers fn to fire at an absolute cycle. A pending event
// of the same kind is replaced. Events already due fire on the next
// Advance, not immediately.
func (s *Scheduler) ScheduleAt(kind EventKind, cycle uint64, fn HandlerFunc) {
	if prev, ok := s.pending[kind]; ok {
		prev.canceled = true
	}
	e := &event{
		kind:  kind,
		cycle: cycle,
		seq:   s.seq,
		fn:    fn,
		owner: s,
	}
	s.seq++
	s.pending[kind] = e
	s.queue.Push(e)
}

// Remove cancels the pending event of the given kind, if any.
func (s *Scheduler) Remove(kind EventKind) {
	if prev, ok := s.pending[kind]; ok {
		prev.canceled = true
		delete(s.pending, kind)
	}
}

// Pending reports whether an event of the given kind is scheduled, and
// at which cycle.
func (s *Scheduler) Pending(kind EventKind) (cycle uint64, ok bool) {
	e, ok := s.pending[kind]
	if !ok {
		return 0, false
	}
	return e.cycle, true
}

// Advance moves time forward by n cycles and fires every event whose
// due cycle has been reached, in due-cycle order with scheduling order
// breaking ties.
func (s *Scheduler) Advance(n uint64) {
	s.cycle += n
	s.fireDue()
}

// Handle implements sim.Handler. The queue is drained manually through
// fireDue, so this only exists to satisfy the event interface.
func (s *Scheduler) Handle(e sim.Event) error {
	ev := e.(*event)
	ev.fn(s.cycle - ev.cycle)
	return nil
}

func (s *Scheduler) fireDue() {
	for {
		due := s.popDue()
		if len(due) == 0 {
			return
		}
		sort.SliceStable(due, func(i, j int) bool {
			if due[i].cycle != due[j].cycle {
				return due[i].cycle < due[j].cycle
			}
			return due[i].seq < due[j].seq
		})
		for _, e := range due {
			// A handler that ran earlier in this batch may have
			// canceled or replaced this one.
			if e.canceled {
				continue
			}
			delete(s.pending, e.kind)
			e.fn(s.cycle - e.cycle)
		}
	}
}

// popDue drains every queued event whose cycle has been reached.
// Canceled entries are discarded here; live ones are returned for
// ordered firing.
func (s *Scheduler) popDue() []*event {
	var due []*event
	for s.queue.Len() > 0 {
		head := s.queue.Peek().(*event)
		if uint64(head.Time()) > s.cycle {
			break
		}
		e := s.queue.Pop().(*event)
		if e.canceled {
			continue
		}
		due = append(due, e)
	}
	return due
}
