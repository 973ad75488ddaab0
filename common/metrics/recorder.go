package metrics

import "time"

// Recorder receives the kernel's messaging events. A nil Recorder is valid everywhere one is accepted;
// use Or to obtain a usable value.
type Recorder interface {
	// MessageReceived counts a message parsed on channel.
	MessageReceived(channel string, msgType string)

	// MessageSent counts a message sent on channel.
	MessageSent(channel string, msgType string)

	// MessageDropped counts a message that could not be parsed or handled.
	MessageDropped(channel string, reason string)

	// CommsOpen reports the number of open comms.
	CommsOpen(n int)

	// TaskDispatched observes how long a task waited for and ran on the main goroutine.
	TaskDispatched(latency time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) MessageReceived(string, string) {}
func (NopRecorder) MessageSent(string, string)     {}
func (NopRecorder) MessageDropped(string, string)  {}
func (NopRecorder) CommsOpen(int)                  {}
func (NopRecorder) TaskDispatched(time.Duration)   {}

// Or returns r, or NopRecorder if r is nil.
func Or(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
