package pipeline

import "time"

// State is a compile's position in its lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateLoading
	StateCollecting
	StateTriangulating
	StateFinishing
	StateAssembled
	// StateFailed is entered when the script fails. Collecting still follows
	// with the registrations made before the failure.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateCollecting:
		return "collecting"
	case StateTriangulating:
		return "triangulating"
	case StateFinishing:
		return "finishing"
	case StateAssembled:
		return "assembled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad runs the script.
	StageLoad Stage = "load"
	// StageTriangulate asks the kernel for a mesh and welds it.
	StageTriangulate Stage = "triangulate"
	// StageFinish computes normals and UVs.
	StageFinish Stage = "finish"
	StageAssemble Stage = "assemble"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the object is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the object is currently being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the object finished the stage.
	StatusDone Status = "done"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
	// StatusCached marks results served from the disk cache.
	StatusCached Status = "cached"
)

// Event reports progress for one registered object, or for the whole
// compile when Object is empty and Index is -1.
type Event struct {
	Object  string
	Index   int
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent may be called from several
// goroutines at once.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageLoad, StageTriangulate, StageFinish, StageAssemble}
