package appconf

import (
	"fmt"
	"strings"
)

// Environment names the deployment the process runs in.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a command-line or config value to an
// Environment. Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "test", "testing":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// UnmarshalText lets YAML and env decoding accept the textual names.
func (e *Environment) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "development", "dev", "":
		*e = Development
	case "test", "testing":
		*e = Test
	case "production", "prod":
		*e = Production
	default:
		return fmt.Errorf("unknown environment %q", string(text))
	}
	return nil
}

func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
