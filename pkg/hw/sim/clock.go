package sim

import (
	"context"
	"sync"
	"time"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/irq"
)

// CPUFrequency is the emulated CPU clock in Hz.
const CPUFrequency = 16777216

// FrameDuration is the VBlank period.
const FrameDuration = time.Second / hw.FPS

// DefaultResolution is the wall clock step used by Clock.Run.
const DefaultResolution = time.Millisecond

type consoleSchedule struct {
	vblank time.Duration
	timers [hw.NumTimers]struct {
		due    time.Duration
		period time.Duration
	}
}

// Clock drives VBlank and timer interrupts of every console on a cable on
// a virtual timeline. Advance moves the timeline explicitly, Run follows
// the wall clock.
type Clock struct {
	Cable      *Cable
	Resolution time.Duration

	now       time.Duration
	schedules map[*Console]*consoleSchedule
	lock      sync.Mutex
}

// NewClock creates a clock for a cable.
func NewClock(cable *Cable) *Clock {
	return &Clock{
		Cable:      cable,
		Resolution: DefaultResolution,
		schedules:  make(map[*Console]*consoleSchedule),
	}
}

// Now returns the virtual time elapsed.
func (c *Clock) Now() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the timeline forward, raising every interrupt which falls
// due in order. The cable is flushed after each interrupt so exchanges
// started by a handler complete before the next event.
func (c *Clock) Advance(d time.Duration) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	target := c.now + d
	fired := 0
	for {
		con, src, due := c.nextLocked(target)
		if con == nil {
			break
		}
		c.now = due
		con.Fire(src)
		c.Cable.Flush()
		fired++
	}
	c.now = target
	return fired
}

// Run implements framework.Runnable.
func (c *Clock) Run(ctx context.Context) error {
	res := c.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	ticker := time.NewTicker(res)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Advance(now.Sub(last))
			last = now
		}
	}
}

func (c *Clock) scheduleLocked(con *Console) *consoleSchedule {
	s := c.schedules[con]
	if s == nil {
		s = &consoleSchedule{vblank: c.now + FrameDuration}
		c.schedules[con] = s
	}
	for id := range s.timers {
		t := &s.timers[id]
		period := con.TimerPeriod(id)
		switch {
		case period <= 0:
			t.due, t.period = 0, 0
		case period != t.period:
			t.due, t.period = c.now+period, period
		}
	}
	return s
}

// nextLocked finds the earliest interrupt due no later than target and
// reschedules it.
func (c *Clock) nextLocked(target time.Duration) (*Console, irq.Source, time.Duration) {
	var (
		found *Console
		src   irq.Source
		due   = target + 1
		next  *time.Duration
		step  time.Duration
	)
	for _, con := range c.Cable.All() {
		s := c.scheduleLocked(con)
		if s.vblank < due {
			found, src, due = con, irq.VBlank, s.vblank
			next, step = &s.vblank, FrameDuration
		}
		for id := range s.timers {
			t := &s.timers[id]
			if t.period > 0 && t.due < due {
				found, src, due = con, irq.TimerSource(id), t.due
				next, step = &t.due, t.period
			}
		}
	}
	if found == nil || due > target {
		return nil, 0, 0
	}
	*next += step
	return found, src, due
}
