package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
)

// AWSSecretsManagerConfig contains configuration for the AWS Secrets Manager
// backend.
type AWSSecretsManagerConfig struct {
	// AWS Region (e.g., "us-east-1")
	Region string

	// Optional: AWS profile name (for local development)
	Profile string

	// Optional: Custom endpoint (for LocalStack testing)
	Endpoint string

	// Cache TTL for secrets (default: 5 minutes)
	CacheTTL time.Duration

	// Enable caching
	EnableCache bool
}

// DefaultAWSSecretsManagerConfig returns default configuration
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// awsSecretsManager implements ports.SecretManager on AWS Secrets Manager.
type awsSecretsManager struct {
	client *secretsmanager.Client
	config *AWSSecretsManagerConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretsManager creates an AWS Secrets Manager backend.
func NewAWSSecretsManager(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretManager, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOptions := []func(*secretsmanager.Options){}
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager backend initialized",
		zap.String("region", cfg.Region),
		zap.Bool("cache_enabled", cfg.EnableCache),
	)

	return &awsSecretsManager{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

// GetSecret retrieves a secret by name or full ARN.
func (a *awsSecretsManager) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	if cached := a.cache.get(name); cached != nil {
		return cached, nil
	}

	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		a.logger.Error("failed to retrieve secret",
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	secret := &ports.Secret{
		Name:    name,
		Value:   aws.ToString(result.SecretString),
		Version: aws.ToString(result.VersionId),
	}
	if result.CreatedDate != nil {
		secret.CreatedAt = *result.CreatedDate
	}

	a.cache.set(name, secret)
	return secret, nil
}

// HealthCheck verifies the Secrets Manager API is reachable.
func (a *awsSecretsManager) HealthCheck(ctx context.Context) error {
	_, err := a.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("secrets manager unreachable: %w", err)
	}
	return nil
}
