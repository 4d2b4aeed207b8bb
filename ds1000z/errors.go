package ds1000z

import "fmt"

// IncompleteTransferError indicates a chunked waveform read stalled: a
// sub-range request returned no bytes before the full record arrived.
// It is surfaced rather than retried so a dead instrument cannot hang
// the caller in a silent retry loop.
type IncompleteTransferError struct {
	// Channel is the source being read
	Channel Channel

	// Got is the number of bytes accumulated before the stall
	Got int

	// Want is the number of bytes the preamble promised
	Want int
}

func (e *IncompleteTransferError) Error() string {
	return fmt.Sprintf("incomplete transfer on %s: instrument stalled after %d of %d bytes", e.Channel, e.Got, e.Want)
}

// UnresolvedDepthError indicates the AUTO memory depth resolution
// sequence failed partway.  The sequence mutates run state and waveform
// mode across several round trips; after a partial failure the
// instrument's state is indeterminate, so the error names the step
// reached and the caller decides whether to retry.
type UnresolvedDepthError struct {
	// Step is the name of the step that failed
	Step string

	// Err is the underlying failure
	Err error
}

func (e *UnresolvedDepthError) Error() string {
	return fmt.Sprintf("could not resolve AUTO memory depth at step %s: %v", e.Step, e.Err)
}

func (e *UnresolvedDepthError) Unwrap() error {
	return e.Err
}
