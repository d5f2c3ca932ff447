package gtfsdb

import "nextstop.transit.org/internal/appconf"

// Config holds configuration options for the Client
type Config struct {
	// Database configuration
	DBPath  string              // Path to SQLite database file, or ":memory:"
	Env     appconf.Environment // Development, Test, Production
	verbose bool                // Verbose logging
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	config := Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}

	return config
}

func (c Config) inMemory() bool {
	return c.DBPath == ":memory:" || c.DBPath == ""
}
