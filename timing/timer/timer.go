// Package timer models the four cascadable 16-bit hardware timers of
// one CPU core. Regular timers never tick per cycle: the counter is
// derived arithmetically from the global cycle count, and only the
// overflow is a scheduled event.
package timer

import (
	"github.com/nitrosim/nitrosim/timing/sched"
)

// NumTimers is the number of timers per core.
const NumTimers = 4

// prescalers maps the 2-bit prescaler selection to a cycle divisor.
var prescalers = [4]uint64{1, 64, 256, 1024}

// Control is the per-timer control register.
type Control struct {
	Prescaler uint8
	CountUp   bool
	IRQ       bool
	Start     bool
}

// ReadByte returns one byte of the control register. The high byte
// reads as zero.
func (c *Control) ReadByte(lane int) uint8 {
	switch lane {
	case 0:
		var v uint8
		if c.Start {
			v |= 1 << 7
		}
		if c.IRQ {
			v |= 1 << 6
		}
		if c.CountUp {
			v |= 1 << 2
		}
		return v | c.Prescaler
	case 1:
		return 0
	default:
		panic("timer: control byte index out of range")
	}
}

// WriteByte writes one byte of the control register. The high byte is
// ignored.
func (c *Control) WriteByte(lane int, value uint8) {
	switch lane {
	case 0:
		c.Start = value>>7&1 != 0
		c.IRQ = value>>6&1 != 0
		c.CountUp = value>>2&1 != 0
		c.Prescaler = value & 0x3
	case 1:
	default:
		panic("timer: control byte index out of range")
	}
}

// Timer is one 16-bit up-counting timer.
type Timer struct {
	Reload uint16
	Cnt    Control

	// counter holds the live value for count-up timers and for stopped
	// timers. A running regular timer derives its value from the cycle
	// count instead.
	counter uint16

	startCycle        uint64
	timeTillFirstTick uint64
	timerLen          uint64
}

// Block is the set of four timers belonging to one core.
type Block struct {
	timers   [NumTimers]Timer
	sched    *sched.Scheduler
	core     int
	raiseIRQ func(index int)
}

// NewBlock creates the timer block for one core. raiseIRQ is called
// with the timer index when an overflow with the IRQ bit set occurs.
func NewBlock(s *sched.Scheduler, core int, raiseIRQ func(index int)) *Block {
	return &Block{
		sched:    s,
		core:     core,
		raiseIRQ: raiseIRQ,
	}
}

func (b *Block) eventKind(index int) sched.EventKind {
	return sched.EventKind{
		Type:  sched.EventTimerOverflow,
		Core:  b.core,
		Index: index,
	}
}

// Counter returns the current counter value of one timer, deriving it
// from the cycle count for a running regular timer.
func (b *Block) Counter(index int) uint16 {
	t := &b.timers[index]
	if t.Cnt.CountUp || !t.Cnt.Start {
		return t.counter
	}
	return t.calcCounter(b.sched.Cycle())
}

// Control returns the control register of one timer.
func (b *Block) Control(index int) Control { return b.timers[index].Cnt }

// Read returns one byte of a timer's register block: bytes 0 and 1 are
// the counter, bytes 2 and 3 the control register.
func (b *Block) Read(index, lane int) uint8 {
	switch lane {
	case 0:
		return uint8(b.Counter(index))
	case 1:
		return uint8(b.Counter(index) >> 8)
	case 2, 3:
		return b.timers[index].Cnt.ReadByte(lane - 2)
	default:
		panic("timer: register byte index out of range")
	}
}

// Write writes one byte of a timer's register block: bytes 0 and 1 set
// the reload value, byte 2 the control register, byte 3 is ignored.
// Writing the control register resynchronizes the overflow event.
func (b *Block) Write(index, lane int, value uint8) {
	t := &b.timers[index]
	switch lane {
	case 0:
		t.Reload = t.Reload&0xFF00 | uint16(value)
	case 1:
		t.Reload = t.Reload&0x00FF | uint16(value)<<8
	case 2:
		b.sched.Remove(b.eventKind(index))
		prevStart := t.Cnt.Start
		if !t.Cnt.CountUp && t.Cnt.Start {
			t.counter = t.calcCounter(b.sched.Cycle())
		}
		t.Cnt.WriteByte(0, value)
		if !t.Cnt.CountUp {
			if !prevStart && t.Cnt.Start {
				t.counter = t.Reload
				// One cycle of start-up latency before counting.
				b.startTimer(index, 1)
			} else if t.Cnt.Start {
				b.startTimer(index, 0)
			}
		} else if !prevStart && t.Cnt.Start {
			t.counter = t.Reload
		}
	case 3:
		t.Cnt.WriteByte(1, value)
	default:
		panic("timer: register byte index out of range")
	}
}

// resync recomputes the prescaler phase and overflow distance for a
// regular timer whose counting starts at startCycle, and returns the
// cycles from start to overflow. The first tick is aligned to the
// global prescaler phase, not to the start cycle.
func (t *Timer) resync(startCycle uint64) uint64 {
	t.startCycle = startCycle
	p := prescalers[t.Cnt.Prescaler]
	t.timeTillFirstTick = p - (t.startCycle+1)%p
	t.timerLen = p * (0x10000 - uint64(t.Reload) - 1)
	return t.timeTillFirstTick + t.timerLen
}

// startTimer schedules the overflow event for a regular timer starting
// delay cycles from now.
func (b *Block) startTimer(index int, delay uint64) {
	t := &b.timers[index]
	period := t.resync(b.sched.Cycle() + delay)
	b.sched.Schedule(b.eventKind(index), delay+period,
		func(late uint64) { b.onOverflow(index, late) })
}

// calcCounter derives the counter of a running regular timer from the
// cycles elapsed since start. Before the first tick the counter still
// holds the reload value.
func (t *Timer) calcCounter(globalCycle uint64) uint16 {
	if globalCycle < t.startCycle {
		return t.counter
	}
	passed := globalCycle - t.startCycle
	if passed < t.timeTillFirstTick {
		return t.counter
	}
	passed -= t.timeTillFirstTick
	change := passed / prescalers[t.Cnt.Prescaler]
	if change >= 0x10000 {
		panic("timer: counter derivation crossed an unserviced overflow")
	}
	return t.counter + 1 + uint16(change)
}

// clock advances a count-up timer by one input tick and reports
// whether it overflowed.
func (t *Timer) clock() bool {
	if !t.Cnt.CountUp {
		panic("timer: clock on a regular timer")
	}
	if !t.Cnt.Start {
		return false
	}
	if t.counter == 0xFFFF {
		t.counter = t.Reload
		return true
	}
	t.counter++
	return false
}

// onOverflow delivers the IRQ, feeds the next timer's count-up input,
// and restarts a regular timer for its next period. Time may already
// have moved past the due cycle when the event fires; every period
// that elapsed in the gap is delivered before the next event is
// scheduled, so overflows are never dropped and the period never
// drifts.
func (b *Block) onOverflow(index int, late uint64) {
	t := &b.timers[index]
	for {
		if t.Cnt.IRQ {
			b.raiseIRQ(index)
		}
		if index+1 < NumTimers && b.timers[index+1].Cnt.CountUp {
			if b.timers[index+1].clock() {
				b.onOverflow(index+1, 0)
			}
		}
		if t.Cnt.CountUp {
			return
		}
		t.counter = t.Reload
		// Restart back-dated to the overflow's due cycle.
		period := t.resync(b.sched.Cycle() - late)
		if late < period {
			b.sched.Schedule(b.eventKind(index), period-late,
				func(l uint64) { b.onOverflow(index, l) })
			return
		}
		late -= period
	}
}
