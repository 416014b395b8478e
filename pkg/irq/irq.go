// Package irq is the dispatch shim between interrupt sources and the link
// handlers.
//
// The embedding application owns a Controller, registers handlers for the
// sources it cares about and forwards hardware interrupts to Raise. Handlers
// run on the raising goroutine and may preempt each other, exactly like
// nested interrupts on the target.
package irq

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Source identifies an interrupt source.
type Source int

// Interrupt sources used by the link layer.
const (
	VBlank Source = iota
	Timer0
	Timer1
	Timer2
	Timer3
	Serial

	numSources
)

// TimerSource maps a hardware timer id to its source.
func TimerSource(id int) Source {
	if id < 0 || id > 3 {
		panic(fmt.Sprintf("invalid timer id %d", id))
	}
	return Timer0 + Source(id)
}

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case VBlank:
		return "vblank"
	case Timer0, Timer1, Timer2, Timer3:
		return fmt.Sprintf("timer%d", int(s-Timer0))
	case Serial:
		return "serial"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Handler is called when a source fires.
type Handler interface {
	HandleInterrupt(Source)
}

// HandlerFunc is func type of Handler.
type HandlerFunc func(Source)

// HandleInterrupt implements Handler.
func (f HandlerFunc) HandleInterrupt(src Source) {
	f(src)
}

// Controller routes raised sources to registered handlers.
type Controller struct {
	handlers [numSources][]Handler
	lock     sync.RWMutex
	disabled atomic.Bool
}

// New creates a Controller with the master enable on.
func New() *Controller {
	return &Controller{}
}

// Add registers handlers for a source.
func (c *Controller) Add(src Source, handlers ...Handler) *Controller {
	c.lock.Lock()
	c.handlers[src] = append(c.handlers[src], handlers...)
	c.lock.Unlock()
	return c
}

// AddFunc registers a plain func for a source.
func (c *Controller) AddFunc(src Source, fn func()) *Controller {
	return c.Add(src, HandlerFunc(func(Source) { fn() }))
}

// Remove drops all handlers of a source.
func (c *Controller) Remove(src Source) {
	c.lock.Lock()
	c.handlers[src] = nil
	c.lock.Unlock()
}

// SetEnabled sets the master enable. Raised sources are discarded while
// disabled.
func (c *Controller) SetEnabled(en bool) {
	c.disabled.Store(!en)
}

// Enabled returns the master enable.
func (c *Controller) Enabled() bool {
	return !c.disabled.Load()
}

// Raise dispatches a source to its handlers and reports whether any handler
// ran.
func (c *Controller) Raise(src Source) bool {
	if c.disabled.Load() {
		return false
	}
	c.lock.RLock()
	handlers := c.handlers[src]
	c.lock.RUnlock()
	for _, h := range handlers {
		h.HandleInterrupt(src)
	}
	return len(handlers) > 0
}
