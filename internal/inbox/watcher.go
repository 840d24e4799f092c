package inbox

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultInterval is used when the watcher is created with a non-positive interval.
const defaultInterval = 60 * time.Second

// refreshTimeout is the maximum time allowed for a single refresh.
const refreshTimeout = 30 * time.Second

// Watcher refreshes an Inbox on a fixed interval and on demand. Manual
// triggers are not coalesced with the periodic refresh: each runs in its
// own goroutine and the Inbox sequence guard drops stale results.
//
// A Watcher can be stopped and started again.
type Watcher struct {
	inbox     *Inbox
	interval  time.Duration
	resultCh  chan RefreshedMsg
	triggerCh chan struct{}

	mu  gosync.Mutex
	run *watchRun
}

// watchRun is the state of one Start/Stop cycle.
type watchRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     gosync.WaitGroup
}

// NewWatcher creates a Watcher for inbox.
func NewWatcher(inbox *Inbox, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{
		inbox:     inbox,
		interval:  interval,
		resultCh:  make(chan RefreshedMsg, 16),
		triggerCh: make(chan struct{}, 16),
	}
}

// Interval returns the time between periodic refreshes.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Start launches the refresh loop and returns a tea.Cmd that waits for
// the first result. It does an initial refresh immediately. Every refresh
// runs under ctx; cancelling it or calling Stop aborts refreshes in flight.
func (w *Watcher) Start(ctx context.Context) tea.Cmd {
	w.mu.Lock()
	if w.run != nil {
		w.mu.Unlock()
		return nil
	}
	r := &watchRun{stopCh: make(chan struct{})}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	w.run = r
	w.mu.Unlock()

	go w.loop(r)

	return w.WaitForResult()
}

// Stop halts the refresh loop, cancels in-flight refreshes and waits for
// them to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	r := w.run
	w.run = nil
	w.mu.Unlock()
	if r == nil {
		return
	}

	close(r.stopCh)
	r.cancel()
	r.wg.Wait()
}

// Trigger requests an immediate refresh.
func (w *Watcher) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
		// Channel full; a refresh is already pending.
	}
}

// Results returns the channel refresh outcomes are delivered on.
func (w *Watcher) Results() <-chan RefreshedMsg {
	return w.resultCh
}

// WaitForResult returns a tea.Cmd that waits for the next refresh result.
// Call it again after handling a RefreshedMsg to keep listening. The
// command yields nil once the watcher is stopped.
func (w *Watcher) WaitForResult() tea.Cmd {
	w.mu.Lock()
	r := w.run
	w.mu.Unlock()
	if r == nil {
		return func() tea.Msg { return nil }
	}
	stopCh := r.stopCh

	return func() tea.Msg {
		select {
		case result := <-w.resultCh:
			return result
		case <-stopCh:
			return nil
		}
	}
}

// loop runs until the run is stopped or its context is cancelled.
func (w *Watcher) loop(r *watchRun) {
	defer r.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.spawn(r)

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			w.spawn(r)
		case <-w.triggerCh:
			w.spawn(r)
		}
	}
}

// spawn runs one refresh in its own goroutine.
func (w *Watcher) spawn(r *watchRun) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(r.ctx, refreshTimeout)
		defer cancel()

		res, err := w.inbox.Refresh(ctx)
		if r.ctx.Err() != nil {
			// Stopped while fetching; nobody is waiting for this one.
			return
		}
		w.sendResult(RefreshedMsg{Result: res, Err: err})
	}()
}

// sendResult delivers msg without blocking the refresh goroutine.
func (w *Watcher) sendResult(msg RefreshedMsg) {
	select {
	case w.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking
	}
}
