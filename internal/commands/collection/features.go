package collectioncmd

// FeatureGates exposes runtime feature toggles honoured by collection command
// handlers. Callers supply closures reading from the runtime config so the
// handlers stay decoupled from configuration.
type FeatureGates struct {
	SyncEnabled   func() bool
	ImportEnabled func() bool
}

func (g FeatureGates) syncEnabled() bool {
	if g.SyncEnabled == nil {
		return true
	}
	return g.SyncEnabled()
}

func (g FeatureGates) importEnabled() bool {
	if g.ImportEnabled == nil {
		return true
	}
	return g.ImportEnabled()
}
