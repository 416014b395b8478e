// Package cable implements the multiplayer link session.
//
// A Session is driven by three interrupts which the application routes to
// it (see Register): VBlank notices a wedged transport, the send timer
// starts exchanges on the primary, and Serial collects the words of every
// completed exchange into per-peer queues.
//
// Handlers and accessors share one non-blocking guard. Whoever finds it
// taken skips its work for that call, the state change is dropped rather
// than queued.
package cable

import (
	"runtime"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/irq"
	"github.com/robotalks/multilink/pkg/l0/queue"
	"github.com/robotalks/multilink/pkg/l0/raw"
)

// State is derived from the session fields.
type State int

// States.
const (
	Inactive State = iota
	Searching
	Connected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Searching:
		return "searching"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// offline marks a peer slot whose timeout is not tracked.
const offline = -1

// Session is the link session state machine.
type Session struct {
	config Config
	cable  *raw.Cable
	timers hw.Timers

	enabled         atomic.Bool
	locked          atomic.Bool
	playerCount     atomic.Int32
	currentPlayerID atomic.Int32

	// guarded by locked
	incoming   [hw.MaxPlayers]*queue.Queue
	outgoing   *queue.Queue
	timeouts   [hw.MaxPlayers]int
	irqFlag    bool
	irqTimeout int
}

// New creates an inactive session.
func New(port hw.Port, timers hw.Timers, config Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		config:   config,
		cable:    raw.New(port),
		timers:   timers,
		outgoing: queue.New(config.QueueSize),
	}
	for i := range s.incoming {
		s.incoming[i] = queue.New(config.QueueSize)
	}
	s.resetState()
	return s, nil
}

// Config returns the configuration.
func (s *Session) Config() Config {
	return s.config
}

// IsActive returns whether the session is activated.
func (s *Session) IsActive() bool {
	return s.enabled.Load()
}

// Activate switches the port to multiplayer mode and starts searching for
// peers. It must not be called from an interrupt handler.
func (s *Session) Activate() {
	s.lock()
	defer s.unlock()
	s.enabled.Store(false)
	s.resetLocked()
	s.enabled.Store(true)
	glog.Infof("link: activated at %d bps", s.config.BaudRate.BitsPerSecond())
}

// Deactivate stops the send timer, returns the port to general-purpose
// mode and drops all queued messages.
func (s *Session) Deactivate() {
	s.lock()
	defer s.unlock()
	s.enabled.Store(false)
	s.resetState()
	s.stop()
	glog.Info("link: deactivated")
}

// IsConnected reports at least one peer and a valid own id.
func (s *Session) IsConnected() bool {
	count := s.playerCount.Load()
	return count > 1 && s.currentPlayerID.Load() < count
}

// State returns the current state.
func (s *Session) State() State {
	switch {
	case !s.IsActive():
		return Inactive
	case s.IsConnected():
		return Connected
	}
	return Searching
}

// PlayerCount returns the number of present participants (1-4).
func (s *Session) PlayerCount() int {
	return int(s.playerCount.Load())
}

// CurrentPlayerID returns the slot assigned by the hardware (0-3).
func (s *Session) CurrentPlayerID() int {
	return int(s.currentPlayerID.Load())
}

// Send queues a value for all peers. The reserved values hw.NoData and
// hw.Disconnected are dropped, and so is every value while the session is
// inactive since Activate clears the queue anyway. It returns false when
// nothing was queued.
func (s *Session) Send(data uint16) bool {
	if data == hw.NoData || data == hw.Disconnected || !s.enabled.Load() {
		return false
	}
	if !s.tryLock() {
		return false
	}
	defer s.unlock()
	s.outgoing.Push(data)
	return true
}

// HasMessage reports pending messages from a peer.
func (s *Session) HasMessage(peer int) bool {
	if !validPeer(peer) || !s.tryLock() {
		return false
	}
	defer s.unlock()
	return !s.incoming[peer].IsEmpty()
}

// ReadMessage dequeues the next message from a peer, hw.NoData if none.
func (s *Session) ReadMessage(peer int) uint16 {
	if !validPeer(peer) || !s.tryLock() {
		return hw.NoData
	}
	defer s.unlock()
	return s.incoming[peer].Pop()
}

// Peek returns the next message from a peer without dequeuing it.
func (s *Session) Peek(peer int) uint16 {
	if !validPeer(peer) || !s.tryLock() {
		return hw.NoData
	}
	defer s.unlock()
	return s.incoming[peer].Peek()
}

// DidQueueOverflow reports whether any queue dropped a message since the
// last clear.
func (s *Session) DidQueueOverflow(clear bool) bool {
	if !s.tryLock() {
		return false
	}
	defer s.unlock()
	overflow := s.outgoing.Overflowed(clear)
	for _, q := range s.incoming {
		if q.Overflowed(clear) {
			overflow = true
		}
	}
	return overflow
}

// ResetTimer restarts the send timer without disconnecting.
func (s *Session) ResetTimer() {
	if !s.enabled.Load() {
		return
	}
	s.stopTimer()
	s.startTimer()
}

// OnVBlank handles the frame interrupt.
func (s *Session) OnVBlank() {
	if !s.enabled.Load() || !s.tryLock() {
		return
	}
	defer s.unlock()
	if !s.irqFlag {
		s.irqTimeout++
	}
	s.irqFlag = false
}

// OnTimer handles the send timer interrupt.
func (s *Session) OnTimer() {
	if !s.enabled.Load() || !s.tryLock() {
		return
	}
	defer s.unlock()

	if hasError := s.cable.HasError(); hasError || s.irqTimeout >= s.config.Timeout {
		glog.Warningf("link: reset, error=%v stalled frames=%d", hasError, s.irqTimeout)
		s.resetLocked()
		return
	}

	if s.cable.IsPrimary() && s.cable.IsReady() && !s.cable.IsSending() {
		s.cable.SetData(s.outgoing.Pop())
		s.cable.StartTransfer()
	}
}

// OnSerial handles the exchange completion interrupt.
func (s *Session) OnSerial() {
	if !s.enabled.Load() || !s.tryLock() {
		return
	}
	defer s.unlock()

	s.irqFlag = true
	s.irqTimeout = 0

	if !s.cable.IsReady() || s.cable.HasError() {
		if glog.V(3) {
			glog.Info("link: reset, exchange completed without all peers ready")
		}
		s.resetLocked()
		return
	}

	self := s.cable.PlayerID()
	s.currentPlayerID.Store(int32(self))

	var count int32
	for i := 0; i < hw.MaxPlayers; i++ {
		data := s.cable.Port.Recv(i)
		if data != hw.Disconnected {
			if s.timeouts[i] == offline {
				s.incoming[i].Clear()
			}
			s.timeouts[i] = 0
			if data != hw.NoData && i != self {
				s.incoming[i].Push(data)
			}
			count++
			continue
		}
		if s.timeouts[i] == offline {
			continue
		}
		s.timeouts[i]++
		if s.timeouts[i] >= s.config.RemoteTimeout {
			s.incoming[i].Clear()
			s.timeouts[i] = offline
			if glog.V(3) {
				glog.Infof("link: player %d offline", i)
			}
			continue
		}
		count++
	}
	if count < 1 {
		count = 1
	}
	s.playerCount.Store(count)

	s.cable.SetData(hw.NoData)
	if !s.cable.IsPrimary() {
		s.cable.SetData(s.outgoing.Pop())
	}
}

// Handlers returns the interrupt handlers by source.
func (s *Session) Handlers() map[irq.Source]irq.Handler {
	return map[irq.Source]irq.Handler{
		irq.VBlank: irq.HandlerFunc(func(irq.Source) { s.OnVBlank() }),
		irq.Serial: irq.HandlerFunc(func(irq.Source) { s.OnSerial() }),
		irq.TimerSource(s.config.SendTimerID): irq.HandlerFunc(func(irq.Source) { s.OnTimer() }),
	}
}

// Register adds the handlers to an interrupt controller.
func (s *Session) Register(ctrl *irq.Controller) {
	for src, h := range s.Handlers() {
		ctrl.Add(src, h)
	}
}

// Unregister removes all handlers of the session sources from ctrl.
func (s *Session) Unregister(ctrl *irq.Controller) {
	for src := range s.Handlers() {
		ctrl.Remove(src)
	}
}

func (s *Session) resetLocked() {
	s.resetState()
	s.stop()
	s.start()
}

func (s *Session) resetState() {
	s.playerCount.Store(1)
	s.currentPlayerID.Store(0)
	for i := range s.incoming {
		s.incoming[i].Clear()
		s.timeouts[i] = offline
	}
	s.outgoing.Clear()
	s.irqFlag = false
	s.irqTimeout = 0
}

func (s *Session) start() {
	s.startTimer()
	s.cable.Activate(s.config.BaudRate)
	s.cable.SetInterruptsOn()
}

func (s *Session) stop() {
	s.stopTimer()
	s.cable.Deactivate()
}

func (s *Session) startTimer() {
	s.timers.Start(s.config.SendTimerID, s.config.Interval, hw.TimerFreq1024)
}

func (s *Session) stopTimer() {
	s.timers.Stop(s.config.SendTimerID)
}

func (s *Session) tryLock() bool {
	return s.locked.CompareAndSwap(false, true)
}

func (s *Session) unlock() {
	s.locked.Store(false)
}

// lock spins until the guard is free. Only the application calls it,
// interrupt handlers never wait.
func (s *Session) lock() {
	for !s.tryLock() {
		runtime.Gosched()
	}
}

func validPeer(peer int) bool {
	return peer >= 0 && peer < hw.MaxPlayers
}
