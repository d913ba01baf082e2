package engine

import "sync"

// Pending counts outstanding asynchronous operations and runs a continuation
// exactly once when the count reaches zero after Seal.
//
// Callers Add before issuing each operation, Done from each completion, and
// Seal once every operation has been issued. Sealing with nothing outstanding
// fires immediately.
type Pending struct {
	mu     sync.Mutex
	count  int
	sealed bool
	fired  bool
	cont   func()
}

// NewPending returns a counter that calls cont when drained.
func NewPending(cont func()) *Pending {
	return &Pending{cont: cont}
}

// Add registers one more outstanding operation.
// Adding after the continuation fired is a no-op.
func (p *Pending) Add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fired {
		return
	}
	p.count++
}

// Done marks one operation complete.
func (p *Pending) Done() {
	p.mu.Lock()
	if p.count > 0 {
		p.count--
	}
	fire := p.readyLocked()
	p.mu.Unlock()

	if fire {
		p.run()
	}
}

// Seal states that no further operations will be added.
func (p *Pending) Seal() {
	p.mu.Lock()
	p.sealed = true
	fire := p.readyLocked()
	p.mu.Unlock()

	if fire {
		p.run()
	}
}

// Outstanding returns the number of operations not yet done.
func (p *Pending) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Fired reports whether the continuation has run.
func (p *Pending) Fired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fired
}

func (p *Pending) readyLocked() bool {
	if p.fired || !p.sealed || p.count > 0 {
		return false
	}
	p.fired = true
	return true
}

func (p *Pending) run() {
	if p.cont != nil {
		p.cont()
	}
}
