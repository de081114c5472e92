// Package identity is the boundary to the external identity/auth
// collaborator. The router only ever needs two things from it: a token
// to authenticate store requests with, and the owner id behind a
// configured project name. Failures here are fatal for the operation
// that needed them and are never retried by this package.
package identity

import "context"

// Provider supplies authentication material and owner-id lookups.
type Provider interface {
	// AuthToken returns a token valid for the remote store. Providers
	// are responsible for refreshing it; callers fetch it per request.
	AuthToken(ctx context.Context) (string, error)

	// LookupOwnerID resolves a project name to its owner id.
	LookupOwnerID(ctx context.Context, name string) (string, error)
}
