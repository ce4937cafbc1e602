package wsclient

import "sync"

// condFlag is a binary flag whose waiter blocks until the flag reaches a
// target value, with no timeout — used where the wait is genuinely
// unbounded (the read watcher waiting for the poller to clear readFlag).
type condFlag struct {
	mu   sync.Mutex
	cond *sync.Cond
	set  bool
}

func newCondFlag() *condFlag {
	f := &condFlag{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *condFlag) Set() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *condFlag) Clear() {
	f.mu.Lock()
	f.set = false
	f.mu.Unlock()
	f.cond.Broadcast()
}

func (f *condFlag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

func (f *condFlag) WaitUntil(target bool) {
	f.mu.Lock()
	for f.set != target {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

// chanFlag is a binary wake signal a waiter selects on alongside a timeout
// or shutdown channel — used by activityFlag and heartbeatFlag, where the
// waiting goroutine needs to wake on either a status change or an interval
// elapsing. A select over C() and time.After gives that without a timed
// condition variable.
type chanFlag struct {
	mu sync.Mutex
	ch chan struct{}
}

func newChanFlag() *chanFlag {
	return &chanFlag{ch: make(chan struct{})}
}

func (f *chanFlag) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
	default:
		close(f.ch)
	}
}

func (f *chanFlag) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		f.ch = make(chan struct{})
	default:
	}
}

func (f *chanFlag) C() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}
