package store

import "fmt"

// AccessClass identifies when a stored entry may be read.
type AccessClass uint8

// Access classes. The numeric values are persisted by secure backends, so they
// must not change.
const (
	AccessAfterFirstUnlock AccessClass = iota
	AccessAlways
	AccessCustom
)

func (c AccessClass) String() string {
	switch c {
	case AccessAfterFirstUnlock:
		return "after-first-unlock"
	case AccessAlways:
		return "always"
	case AccessCustom:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Accessibility is the access policy an entry is stored with.
type Accessibility struct {
	Class AccessClass
}

var (
	// AccessibleAfterFirstUnlock allows reading the entry once the device has
	// been unlocked at least once since boot. This is the default.
	AccessibleAfterFirstUnlock = Accessibility{Class: AccessAfterFirstUnlock}
	// AccessibleAlways allows reading the entry regardless of device state.
	AccessibleAlways = Accessibility{Class: AccessAlways}
	// AccessibleCustom defers the decision to the custom policy the backend
	// was configured with.
	AccessibleCustom = Accessibility{Class: AccessCustom}
)

// DeviceState is a snapshot of the lock state of the host.
type DeviceState struct {
	Unlocked          bool
	UnlockedSinceBoot bool
}

// AccessControl evaluates accessibility policies against the current device
// state. The zero value treats the device as unlocked, and denies access to
// entries stored with the custom class.
type AccessControl struct {
	State  func() DeviceState
	Custom func(DeviceState) bool
}

// Check returns ErrAccessDenied if an entry stored with class c can't be read
// in the current device state.
func (ac AccessControl) Check(c AccessClass) error {
	st := DeviceState{Unlocked: true, UnlockedSinceBoot: true}
	if ac.State != nil {
		st = ac.State()
	}

	var ok bool
	switch c {
	case AccessAlways:
		ok = true
	case AccessAfterFirstUnlock:
		ok = st.UnlockedSinceBoot || st.Unlocked
	case AccessCustom:
		ok = ac.Custom != nil && ac.Custom(st)
	default:
		return fmt.Errorf("invalid access class %s: %w", c, ErrAccessDenied)
	}

	if !ok {
		return fmt.Errorf("access class %s: %w", c, ErrAccessDenied)
	}

	return nil
}
