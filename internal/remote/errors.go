package remote

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned for any 401 from the service. Callers send the
// user back to sign in.
var ErrSessionExpired = errors.New("session expired")

// TransportError covers everything else that can go wrong talking to the
// service: the network, an unexpected status, or a body that does not decode.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Body)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
