package config

// StoreConfig locates the SQLite database runs are saved to.
type StoreConfig struct {
	// Path of the database file, ":memory:" for a throwaway database.
	Path string `json:"path"`
	// Disabled turns persistence off even when Path is set.
	Disabled bool `json:"disabled"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" && !c.Disabled {
		c.Path = "lec.db"
	}
}

// Enabled reports whether runs are persisted.
func (c StoreConfig) Enabled() bool { return !c.Disabled && c.Path != "" }
