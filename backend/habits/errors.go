package habits

import "fmt"

// AlreadyCompletedError is returned by the completion workflow when the
// guard finds an existing completion inside the current period window.
// The caller should surface it and wait for the next period; retrying is
// pointless until the window rolls over.
type AlreadyCompletedError struct {
	Frequency Frequency
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("habit already completed for this %s period", e.Frequency)
}
