// Package closeflow implements the close-table negotiation as a finite state
// machine driven by cancellable timers. The sequence simulates asking a
// waiter for the bill: request submission, waiter acceptance after a
// randomized delay, bill delivery, and an explicit payment confirmation.
//
// The controller is the only writer of its state. Every scheduled transition
// re-checks the current state (and a generation counter) before applying, so
// a stale timer that fires after cancellation or after the machine has moved
// on is a no-op. Shutdown synchronously stops outstanding timers.
package closeflow

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// State is one stage of the close-table negotiation.
type State string

const (
	StateIdle         State = "idle"
	StateRequesting   State = "requesting"
	StateWaiting      State = "waiting"
	StateWaiterComing State = "waiter_coming"
	StateBillReady    State = "bill_ready"
	StatePaid         State = "paid"
)

var (
	// ErrAlreadyClosing is returned when Start is called while a close flow
	// is already in flight. At most one flow runs per controller.
	ErrAlreadyClosing = errors.New("close flow already in progress")

	// ErrNotBillReady is returned by ConfirmPayment before the bill has been
	// delivered. The call has no effect on the machine.
	ErrNotBillReady = errors.New("bill is not ready yet")

	// ErrShutDown is returned when the controller was torn down while the
	// caller was waiting on a transition.
	ErrShutDown = errors.New("close flow was shut down")
)

// waiterPool is the small fixed pool a waiter name is drawn from.
var waiterPool = []string{"Marco", "Sofia", "Jules", "Nadia", "Tomás"}

// Config carries the timing bounds for the simulated negotiation. All fields
// are overridable so tests can run the whole flow in milliseconds.
type Config struct {
	// RequestDelay is the fixed hold in requesting, representing network
	// submission of the close request. Not retried: a failure there is
	// surfaced directly to the Start caller.
	RequestDelay time.Duration
	// WaiterMinDelay/WaiterMaxDelay bound the uniformly sampled delay before
	// the waiter accepts (waiting → waiter_coming).
	WaiterMinDelay time.Duration
	WaiterMaxDelay time.Duration
	// DeliveryDelay is the hold between waiter_coming and bill_ready.
	DeliveryDelay time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		RequestDelay:   1500 * time.Millisecond,
		WaiterMinDelay: 2 * time.Second,
		WaiterMaxDelay: 4 * time.Second,
		DeliveryDelay:  2 * time.Second,
	}
}

// timerHandle abstracts *time.Timer so tests can substitute a fake scheduler.
type timerHandle interface {
	Stop() bool
}

// AfterFunc schedules fn after d and returns a stoppable handle. Tests
// replace it to fire transitions synchronously.
type AfterFunc func(d time.Duration, fn func()) timerHandle

func stdAfterFunc(d time.Duration, fn func()) timerHandle {
	return time.AfterFunc(d, fn)
}

// Waiter describes the accepted request: who is coming and when.
type Waiter struct {
	Name             string    `json:"name"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

// Controller runs one close-table negotiation. The zero value is not usable;
// construct with New.
type Controller struct {
	mu      sync.Mutex
	state   State
	gen     uint64 // bumped on shutdown; stale callbacks compare and bail
	alive   bool
	waiter  Waiter
	timers  []timerHandle
	started chan struct{} // closed when requesting completes
	quit    chan struct{} // closed on Shutdown; releases Start waiters

	cfg   Config
	after AfterFunc
	now   func() time.Time
	randn func(n int) int
}

// New constructs an idle controller with the given timings. Zero or inverted
// waiter bounds collapse to the minimum.
func New(cfg Config) *Controller {
	if cfg.WaiterMaxDelay < cfg.WaiterMinDelay {
		cfg.WaiterMaxDelay = cfg.WaiterMinDelay
	}
	return &Controller{
		state: StateIdle,
		alive: true,
		quit:  make(chan struct{}),
		cfg:   cfg,
		after: stdAfterFunc,
		now:   time.Now,
		randn: rand.Intn,
	}
}

// SetScheduler overrides the timer factory, clock, and random source.
// Intended for tests; must be called before Start.
func (c *Controller) SetScheduler(after AfterFunc, now func() time.Time, randn func(int) int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if after != nil {
		c.after = after
	}
	if now != nil {
		c.now = now
	}
	if randn != nil {
		c.randn = randn
	}
}

// State returns the current stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waiter returns the assigned waiter once the request has been accepted
// (zero value before waiter_coming).
func (c *Controller) Waiter() Waiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiter
}

// Start begins the negotiation: idle → requesting, a fixed hold, then
// waiting with the waiter-acceptance timer armed. It blocks for the
// requesting hold and returns once the machine has reached waiting, so the
// caller learns immediately whether submission went through. Concurrent
// calls while not idle fail with ErrAlreadyClosing.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrShutDown
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyClosing
	}
	c.state = StateRequesting
	gen := c.gen
	done := make(chan struct{})
	c.started = done
	h := c.after(c.cfg.RequestDelay, func() {
		if c.apply(gen, StateRequesting, StateWaiting, nil) {
			c.scheduleWaiter(gen)
		}
		close(done)
	})
	c.track(h)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		// Submission abandoned: tear the flow back to idle so a later
		// closeTable can run.
		c.mu.Lock()
		if c.alive && c.state == StateRequesting && c.gen == gen {
			c.state = StateIdle
			c.gen++
			c.stopTimersLocked()
		}
		c.mu.Unlock()
		return ctx.Err()
	case <-c.quit:
		return ErrShutDown
	case <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return ErrShutDown
	}
	return nil
}

// ConfirmPayment moves bill_ready → paid. It is the only transition driven
// by the caller rather than a timer; before bill_ready it has no effect and
// reports ErrNotBillReady.
func (c *Controller) ConfirmPayment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return ErrShutDown
	}
	if c.state != StateBillReady {
		return ErrNotBillReady
	}
	c.state = StatePaid
	// Terminal: invalidate anything still ticking.
	c.gen++
	c.stopTimersLocked()
	return nil
}

// Shutdown tears the controller down: outstanding timers are stopped
// synchronously and any callback that already fired becomes a no-op via the
// generation check. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return
	}
	c.alive = false
	c.gen++
	c.stopTimersLocked()
	close(c.quit)
}

// scheduleWaiter arms the waiting → waiter_coming timer with a uniformly
// sampled delay, then chains the delivery timer.
func (c *Controller) scheduleWaiter(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.gen != gen {
		return
	}
	delay := c.cfg.WaiterMinDelay
	if spread := c.cfg.WaiterMaxDelay - c.cfg.WaiterMinDelay; spread > 0 {
		delay += time.Duration(c.randn(int(spread) + 1))
	}
	eta := c.now().Add(delay + c.cfg.DeliveryDelay)
	name := waiterPool[c.randn(len(waiterPool))]
	h := c.after(delay, func() {
		ok := c.apply(gen, StateWaiting, StateWaiterComing, func() {
			c.waiter = Waiter{Name: name, EstimatedArrival: eta}
		})
		if ok {
			c.scheduleDelivery(gen)
		}
	})
	c.track(h)
}

// scheduleDelivery arms the waiter_coming → bill_ready timer.
func (c *Controller) scheduleDelivery(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.gen != gen {
		return
	}
	h := c.after(c.cfg.DeliveryDelay, func() {
		c.apply(gen, StateWaiterComing, StateBillReady, nil)
	})
	c.track(h)
}

// apply performs from → to under the lock, but only when the controller is
// alive, the generation matches, and the machine is still in from. Returns
// whether the transition happened. effect runs inside the critical section.
func (c *Controller) apply(gen uint64, from, to State, effect func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.gen != gen || c.state != from {
		return false
	}
	c.state = to
	if effect != nil {
		effect()
	}
	return true
}

// track remembers a timer handle for shutdown. Caller holds c.mu.
func (c *Controller) track(h timerHandle) {
	c.timers = append(c.timers, h)
}

// stopTimersLocked stops and forgets all outstanding timers. Caller holds c.mu.
func (c *Controller) stopTimersLocked() {
	for _, h := range c.timers {
		h.Stop()
	}
	c.timers = nil
}
