package app

import (
	"sync"
	"time"
)

// debouncer runs fn for a key once the key has been quiet for wait. Triggers
// during the quiet period restart it.
type debouncer struct {
	wait time.Duration
	fn   func(key string)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(wait time.Duration, fn func(key string)) *debouncer {
	return &debouncer{wait: wait, fn: fn, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.wait, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		d.fn(key)
	})
	d.timers[key] = t
}

// Stop cancels pending runs and waits for any run already in progress.
func (d *debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
