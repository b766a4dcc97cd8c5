package core

import "errors"

// Error kinds surfaced by the core subsystem (spec §7). Callers compare
// against these with errors.Is; wrapped context is added with fmt.Errorf.
var (
	ErrBusUnavailable       = errors.New("bus unavailable")
	ErrProxyCreationFailed  = errors.New("proxy creation failed")
	ErrRegistrationFailed   = errors.New("registration failed")
	ErrUnregistrationFailed = errors.New("unregistration failed")
	ErrInvalidCommitment    = errors.New("invalid commitment")
	ErrShortHeader          = errors.New("short header")
	ErrOverflowChunk        = errors.New("overflow chunk")
	ErrHciUnavailable       = errors.New("hci unavailable")
	ErrKeyLoadFailed        = errors.New("key load failed")
	ErrUserFileLoadFailed   = errors.New("user file load failed")
)
