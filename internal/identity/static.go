package identity

import (
	"context"
	"errors"
	"fmt"
)

// StaticProvider serves a fixed token and a fixed project→owner table
// from configuration. It lets the binary run against stores that use
// long-lived tokens, and stands in for a full identity service.
type StaticProvider struct {
	Token  string
	Owners map[string]string
}

// AuthToken returns the configured token.
func (p *StaticProvider) AuthToken(ctx context.Context) (string, error) {
	if p.Token == "" {
		return "", errors.New("identity: no auth token configured")
	}
	return p.Token, nil
}

// LookupOwnerID resolves a project name against the configured table.
func (p *StaticProvider) LookupOwnerID(ctx context.Context, name string) (string, error) {
	id, ok := p.Owners[name]
	if !ok || id == "" {
		return "", fmt.Errorf("identity: unknown project %q", name)
	}
	return id, nil
}
