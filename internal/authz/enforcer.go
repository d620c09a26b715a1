// Package authz decides which roles may use the administrative API.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer wraps a synced casbin enforcer loaded with the built-in policy
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer creates an enforcer from the embedded model and policy
func NewEnforcer() (*Enforcer, error) {
	return NewEnforcerFromStrings(embeddedModel, embeddedPolicy)
}

// NewEnforcerFromStrings creates an enforcer from a model and policy CSV
func NewEnforcerFromStrings(modelText, policy string) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, policy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("invalid policy line %q", line)
		}
	}
	return nil
}

// Enforce checks if subject can perform action on object
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// EnforceAny checks if any of roles may perform action on object
func (e *Enforcer) EnforceAny(roles []string, object, action string) (bool, error) {
	for _, role := range roles {
		allowed, err := e.Enforce(role, object, action)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}
