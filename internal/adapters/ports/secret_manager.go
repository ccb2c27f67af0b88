package ports

import (
	"context"
	"time"
)

// Secret is a named secret value with metadata from the backing store.
type Secret struct {
	Name      string
	Value     string
	Version   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecretManager abstracts where the Converge credential triple lives:
// environment variables for development, AWS Secrets Manager or Vault in
// production.
type SecretManager interface {
	// GetSecret retrieves a secret by name. Implementations must return an
	// error rather than an empty value when the secret is absent.
	GetSecret(ctx context.Context, name string) (*Secret, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error
}
