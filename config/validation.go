package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines the config keys each environment must provide
type ConfigRequirements struct {
	RequiredKeys []string
}

var (
	requirements = map[Environment]ConfigRequirements{
		Development: {
			RequiredKeys: []string{"jwt.secret"},
		},
		Test: {
			RequiredKeys: []string{"jwt.secret"},
		},
		CI: {
			RequiredKeys: []string{"jwt.secret", "db.driver"},
		},
		Production: {
			RequiredKeys: []string{
				"jwt.secret",
				"db.host",
				"db.port",
				"db.user",
				"db.password",
				"db.name",
			},
		},
	}
)

func (c *Config) lookup(key string) string {
	switch key {
	case "jwt.secret":
		return c.JWTSecret
	case "db.driver":
		return c.DBDriver
	case "db.host":
		return c.DBHost
	case "db.port":
		return c.DBPort
	case "db.user":
		return c.DBUser
	case "db.password":
		return c.DBPassword
	case "db.name":
		return c.DBName
	}
	return ""
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	for _, key := range requirements[cfg.Env].RequiredKeys {
		if cfg.lookup(key) == "" {
			errs = append(errs, ValidationError{Field: key, Message: "is required"})
		}
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, ValidationError{Field: "db.driver", Message: "must be postgres or sqlite"})
	}
	if cfg.Env == Production && cfg.DBDriver != "postgres" {
		errs = append(errs, ValidationError{Field: "db.driver", Message: "production requires postgres"})
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.MediaRoot == "" {
			errs = append(errs, ValidationError{Field: "storage.media_root", Message: "is required for local storage"})
		}
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			errs = append(errs, ValidationError{Field: "storage.s3_bucket", Message: "is required for s3 storage"})
		}
	default:
		errs = append(errs, ValidationError{Field: "storage.backend", Message: "must be local or s3"})
	}

	if cfg.JWTTTL <= 0 {
		errs = append(errs, ValidationError{Field: "jwt.ttl", Message: "must be positive"})
	}
	if cfg.Log.ElkEnable && cfg.Log.ElkURL == "" {
		errs = append(errs, ValidationError{Field: "log.elk.url", Message: "is required when elk logging is enabled"})
	}
	if cfg.Log.LogstashEnable && cfg.Log.LogstashURL == "" {
		errs = append(errs, ValidationError{Field: "log.logstash.url", Message: "is required when logstash logging is enabled"})
	}

	if len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = e.Error()
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
	}

	return nil
}
