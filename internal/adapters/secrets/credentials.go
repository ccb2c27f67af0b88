package secrets

import (
	"context"
	"fmt"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/converge"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
)

// Secret names for the Converge credential triple, relative to whatever
// prefix or mount the configured backend uses.
const (
	SecretMerchantID = "converge/merchant_id"
	SecretUserID     = "converge/user_id"
	SecretPIN        = "converge/pin"
)

// LoadCredentials assembles the Converge credential triple from a secret
// manager. All three parts must resolve; a partial triple is useless and
// would only fail later with the processor's opaque credential error.
func LoadCredentials(ctx context.Context, sm ports.SecretManager) (converge.Credentials, error) {
	var creds converge.Credentials

	for _, part := range []struct {
		name string
		dst  *string
	}{
		{SecretMerchantID, &creds.MerchantID},
		{SecretUserID, &creds.UserID},
		{SecretPIN, &creds.PIN},
	} {
		secret, err := sm.GetSecret(ctx, part.name)
		if err != nil {
			return converge.Credentials{}, fmt.Errorf("load credential %s: %w", part.name, err)
		}
		*part.dst = secret.Value
	}

	return creds, nil
}
