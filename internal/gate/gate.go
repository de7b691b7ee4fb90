// Package gate decides whether mutating storage operations are permitted.
package gate

// Inputs are the facts the decision is made from. They are fixed at startup:
// the active backend does not change during the life of the process.
type Inputs struct {
	// RemoteConnected is true when the active backend is a connected remote
	// database rather than the deployment filesystem.
	RemoteConnected bool
	// ForceLocalWrites overrides Restricted.
	ForceLocalWrites bool
	// Restricted marks a deployment with a read-only filesystem.
	Restricted bool
}

type Gate struct {
	in Inputs
}

func New(in Inputs) Gate {
	return Gate{in: in}
}

// WritesAllowed is true when the remote backend is connected, or when the
// override is set, or when the deployment is not restricted.
func (g Gate) WritesAllowed() bool {
	if g.in.RemoteConnected {
		return true
	}
	return g.in.ForceLocalWrites || !g.in.Restricted
}

func (g Gate) Inputs() Inputs { return g.in }

// Mode is a short label for health output and logs.
func (g Gate) Mode() string {
	switch {
	case g.in.RemoteConnected:
		return "remote"
	case g.WritesAllowed() && g.in.Restricted:
		return "local-forced"
	case g.WritesAllowed():
		return "local"
	default:
		return "read-only"
	}
}
