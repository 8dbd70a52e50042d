package driver

import "time"

// Stage is a step of the per-function pipeline.
type Stage string

const (
	StageParse    Stage = "parse"
	StageLink     Stage = "link" // call graph and instantiation
	StageSolve    Stage = "solve"
	StageSimplify Stage = "simplify"
	StageSketch   Stage = "sketch"
)

// Status is the state of a function within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusError   Status = "error"
)

// Event reports progress for one function, or for the whole run when
// Function is empty.
type Event struct {
	Function string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
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

func emit(sink ProgressSink, fn string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Function: fn, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
