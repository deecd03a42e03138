package validation

// Event is sent from the worker goroutine to whoever consumes Worker.Events.
type Event interface {
	isEvent()
}

// RangeEvent announces the progress range once the feature count is known.
type RangeEvent struct {
	Min, Max int
}

// ProgressEvent is the absolute number of features processed so far.
type ProgressEvent struct {
	Count int
}

// FinishedEvent is the last event of a run.
type FinishedEvent struct {
	Result Result
	Err    error
}

func (RangeEvent) isEvent()    {}
func (ProgressEvent) isEvent() {}
func (FinishedEvent) isEvent() {}
