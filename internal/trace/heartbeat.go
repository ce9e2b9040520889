package trace

import (
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a liveness event on every tick, carrying the goroutine
// count and heap size. Heartbeats without span ends in between point at a
// kernel call that is not finishing; a growing heap points at a grid that is
// too fine.
type Heartbeat struct {
	tracer Tracer
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// StartHeartbeat starts emitting every interval. It returns nil when tracing
// is off or interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer: tracer,
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run(time.Now())
	return h
}

func (h *Heartbeat) run(start time.Time) {
	defer h.wg.Done()
	var beats uint64
	for {
		select {
		case now := <-h.ticker.C:
			beats++
			h.tracer.Emit(beat(beats, now, now.Sub(start)))
		case <-h.done:
			return
		}
	}
}

func beat(n uint64, now time.Time, uptime time.Duration) *Event {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return &Event{
		Time:   now,
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeDriver,
		GID:    getGoroutineID(),
		Name:   "heartbeat",
		Detail: "#" + strconv.FormatUint(n, 10),
		Extra: map[string]string{
			"uptime":     uptime.Truncate(time.Millisecond).String(),
			"goroutines": strconv.Itoa(runtime.NumGoroutine()),
			"heap_mb":    strconv.FormatUint(ms.HeapAlloc>>20, 10),
		},
	}
}

// Stop ends the ticker goroutine and waits for it. Later calls do nothing.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
		h.wg.Wait()
	})
}
