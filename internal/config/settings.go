package config

import "sync"

// Settings holds the runtime-mutable subset of configuration: the
// knobs a user can flip while the process is running. Everything else
// in [Config] is fixed at startup.
type Settings struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	ReadOnly bool
}

// SettingsStore guards Settings behind a mutex. Chat invocations take
// a [SettingsStore.Snapshot] once at the start of the request so a
// concurrent settings change never affects a round already in flight.
type SettingsStore struct {
	mu sync.Mutex
	s  Settings
}

// NewSettingsStore seeds a store from loaded configuration.
func NewSettingsStore(cfg *Config) *SettingsStore {
	return &SettingsStore{
		s: Settings{
			Provider: cfg.Provider.Name,
			BaseURL:  cfg.Provider.BaseURL,
			APIKey:   cfg.Provider.APIKey,
			Model:    cfg.Provider.Model,
			ReadOnly: cfg.ReadOnly,
		},
	}
}

// Snapshot returns a copy of the current settings.
func (st *SettingsStore) Snapshot() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// Update applies fn to the settings under the lock.
func (st *SettingsStore) Update(fn func(*Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

// SetReadOnly toggles read-only mode.
func (st *SettingsStore) SetReadOnly(v bool) {
	st.Update(func(s *Settings) { s.ReadOnly = v })
}
