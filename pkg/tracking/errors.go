package tracking

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidArgument is the class of all caller argument errors.
	ErrInvalidArgument = errors.New("gaze: invalid argument")

	// ErrNilListener is returned when registering a nil listener.
	ErrNilListener = fmt.Errorf("%w: nil listener", ErrInvalidArgument)

	// ErrInvalidFriendlyName is returned for an empty, oversized or non UTF-8 friendly name.
	ErrInvalidFriendlyName = fmt.Errorf("%w: friendly name", ErrInvalidArgument)

	// ErrNilProducer is returned when constructing a client without a producer.
	ErrNilProducer = fmt.Errorf("%w: nil producer", ErrInvalidArgument)

	// ErrProducerUnavailable is returned by producers when no connection path to the
	// tracker exists. The engine turns it into a false result or a status transition.
	ErrProducerUnavailable = errors.New("gaze: producer unavailable")

	// ErrClosed is returned by operations on a closed client or dispatcher.
	ErrClosed = errors.New("gaze: closed")
)

// MaxFriendlyNameBytes bounds the UTF-8 encoded friendly name.
const MaxFriendlyNameBytes = 200

// ValidateFriendlyName checks the name an application shows to the user in the tracker UI.
func ValidateFriendlyName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidFriendlyName)
	case len(name) > MaxFriendlyNameBytes:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidFriendlyName, len(name), MaxFriendlyNameBytes)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidFriendlyName)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return fmt.Errorf("%w: contains NUL at byte %d", ErrInvalidFriendlyName, i)
		}
	}
	return nil
}
