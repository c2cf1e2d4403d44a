package notifier

import (
	"context"
	"fmt"
)

// Message is a rendered report ready for delivery.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers a message over one channel. Implementations never
// return errors; failures are described by the Result.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) Result
}

// Status is the outcome of a delivery attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes one delivery attempt.
type Result struct {
	Channel string
	Status  Status
	Reason  string // why a delivery was skipped
	Err     error  // cause of a failed delivery
}

func Sent(channel string) Result {
	return Result{Channel: channel, Status: StatusSent}
}

func Skipped(channel, reason string) Result {
	return Result{Channel: channel, Status: StatusSkipped, Reason: reason}
}

func Failed(channel string, err error) Result {
	return Result{Channel: channel, Status: StatusFailed, Err: err}
}

// OK reports whether the attempt did not fail.
func (r Result) OK() bool { return r.Status != StatusFailed }

func (r Result) String() string {
	switch r.Status {
	case StatusSkipped:
		return fmt.Sprintf("[%s] skipped: %s", r.Channel, r.Reason)
	case StatusFailed:
		return fmt.Sprintf("[%s] failed: %v", r.Channel, r.Err)
	default:
		return fmt.Sprintf("[%s] %s", r.Channel, r.Status)
	}
}
