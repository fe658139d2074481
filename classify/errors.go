package classify

import (
	"errors"
	"fmt"
)

// ErrUpstream indicates a transient collaborator failure worth retrying.
type ErrUpstream struct {
	Err error
}

func (e ErrUpstream) Error() string {
	return fmt.Errorf("upstream: %w", e.Err).Error()
}

func (e ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrRejected indicates the collaborator rejected the request or
// returned an unusable payload; retrying will not help.
type ErrRejected struct {
	Err error
}

func (e ErrRejected) Error() string {
	return fmt.Errorf("rejected: %w", e.Err).Error()
}

func (e ErrRejected) Unwrap() error {
	return e.Err
}

func retryable(err error) bool {
	var upstream ErrUpstream
	return errors.As(err, &upstream)
}
