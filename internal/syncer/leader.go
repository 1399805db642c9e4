package syncer

import "sync"

// Claim is a leadership announcement broadcast to all local processes
// sharing one front-desk session.
type Claim struct {
	ProcessID string
}

// Bus is the transport for leadership claims. The interface is deliberately
// tiny so the transport can be swapped: an in-process bus for a single
// process, OS pub/sub for multiple, or none at all for deployments where a
// single process is guaranteed.
type Bus interface {
	Publish(c Claim)
	Subscribe(fn func(Claim)) (unsubscribe func())
}

// InProcessBus is the default Bus: synchronous fan-out to subscribers in the
// same process. Useful in tests and in single-process deployments where
// multiple managers may still be constructed.
type InProcessBus struct {
	mu   sync.Mutex
	subs map[int]func(Claim)
	next int
}

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{subs: map[int]func(Claim){}}
}

func (b *InProcessBus) Publish(c Claim) {
	b.mu.Lock()
	fns := make([]func(Claim), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (b *InProcessBus) Subscribe(fn func(Claim)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Elector decides which local process runs the drain loop. Leadership is
// claimed opportunistically on every manager start and ceded when a
// competing claim arrives while this process is idle. There is no lease or
// heartbeat: duplicate drains are idempotent, election only avoids wasted
// duplicate network work.
type Elector struct {
	id  string
	bus Bus

	mu     sync.Mutex
	leader bool
	busy   func() bool
	onLost []func()
	unsub  func()
}

func NewElector(processID string, bus Bus) *Elector {
	e := &Elector{id: processID, bus: bus, busy: func() bool { return false }}
	e.unsub = bus.Subscribe(e.observe)
	return e
}

// SetBusyCheck installs the drain-in-flight probe. A process mid-drain does
// not cede; it finishes its batch first.
func (e *Elector) SetBusyCheck(fn func() bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		e.busy = fn
	}
}

func (e *Elector) ClaimLeadership() {
	e.mu.Lock()
	e.leader = true
	e.mu.Unlock()
	e.bus.Publish(Claim{ProcessID: e.id})
}

func (e *Elector) OnLeadershipLost(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLost = append(e.onLost, fn)
}

func (e *Elector) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leader
}

func (e *Elector) Close() {
	if e.unsub != nil {
		e.unsub()
	}
}

func (e *Elector) observe(c Claim) {
	if c.ProcessID == e.id {
		return
	}
	e.mu.Lock()
	if !e.leader || e.busy() {
		e.mu.Unlock()
		return
	}
	e.leader = false
	lost := append([]func(){}, e.onLost...)
	e.mu.Unlock()

	for _, fn := range lost {
		fn()
	}
}
