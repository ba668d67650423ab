package models

// Status is the whitelist lifecycle of an identity.
//
//	Unregistered -> Active -> Removed
//
// Unregistered is implicit (no record). Removed is terminal: a removed identity
// cannot be registered again.
type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusRemoved
}

// CanTransitionTo reports whether target is reachable from s.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusActive && target == StatusRemoved
}
