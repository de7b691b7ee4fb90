package moderation

// Intent says what a flip-or-set operation should do.
type Intent int

const (
	Toggle Intent = iota
	On
	Off
)

// IntentFrom maps an optional desired state onto an Intent; nil toggles.
func IntentFrom(desired *bool) Intent {
	switch {
	case desired == nil:
		return Toggle
	case *desired:
		return On
	default:
		return Off
	}
}

// Apply returns the state after applying i to current.
func (i Intent) Apply(current bool) bool {
	switch i {
	case On:
		return true
	case Off:
		return false
	default:
		return !current
	}
}

func (i Intent) String() string {
	switch i {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "toggle"
	}
}
