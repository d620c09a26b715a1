package config

import (
	"os"
	"strings"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment.
// CI=true wins over ENV; anything unrecognised falls back to development.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}
	return ParseEnvironment(os.Getenv("ENV"))
}

// ParseEnvironment maps a name such as "prod" or "production" to an Environment
func ParseEnvironment(name string) Environment {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	case "ci":
		return CI
	default:
		return Development
	}
}

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// UsesJSONLogs reports whether log lines should be machine readable
func (e Environment) UsesJSONLogs() bool {
	return e == Production || e == CI
}
