package channel

import (
	"errors"
	"fmt"
)

var (
	ErrChannelClosed  = errors.New("channel: closed")
	ErrWriteFailure   = errors.New("channel: transport write failed")
	ErrInboxDiscarded = errors.New("channel: inbox discarded")
)

// ClosedError reports an operation that could not be queued or acknowledged
// because the writer pump is gone or the handle was released.
type ClosedError struct {
	// Text is the undelivered message, when the operation carried one.
	Text    string
	HasText bool
	// Cause is the write failure that stopped the writer pump, if any.
	Cause error
}

func (e *ClosedError) Error() string {
	msg := ErrChannelClosed.Error()
	if e.HasText {
		msg = fmt.Sprintf("%s: undelivered %q", msg, e.Text)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ClosedError) Is(target error) bool {
	return target == ErrChannelClosed
}

func (e *ClosedError) Unwrap() error {
	return e.Cause
}

// UndeliveredText extracts the message carried by a ClosedError.
func UndeliveredText(err error) (string, bool) {
	var closed *ClosedError
	if errors.As(err, &closed) && closed.HasText {
		return closed.Text, true
	}
	return "", false
}
