package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
)

// envSecretManager implements ports.SecretManager on environment variables.
// WARNING: development only. Use AWS Secrets Manager or Vault in production.
type envSecretManager struct {
	prefix string
	logger *zap.Logger
}

// NewEnvSecretManager creates a secret manager that resolves names against
// environment variables: "converge/pin" becomes <prefix>_CONVERGE_PIN.
func NewEnvSecretManager(prefix string, logger *zap.Logger) ports.SecretManager {
	return &envSecretManager{
		prefix: prefix,
		logger: logger,
	}
}

func (m *envSecretManager) GetSecret(_ context.Context, name string) (*ports.Secret, error) {
	key := m.envKey(name)

	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret not found: %s", name)
	}

	m.logger.Debug("secret resolved from environment",
		zap.String("name", name),
	)

	return &ports.Secret{
		Name:    name,
		Value:   value,
		Version: "v1",
	}, nil
}

func (m *envSecretManager) HealthCheck(_ context.Context) error {
	return nil
}

func (m *envSecretManager) envKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	if m.prefix != "" {
		key = m.prefix + "_" + key
	}
	return key
}
