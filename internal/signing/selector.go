package signing

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("signing/selector")

// Select resolves the signing provider for the process lifetime. The
// first variant whose configuration is fully present wins, in order
// AWS KMS, Google Cloud KMS, Azure Key Vault, Local. When no cloud
// variant is configured the local fallback is used and a loud warning
// is emitted: an unnoticed fallback in production would silently move
// certificate keys out of managed custody, so flagging it is part of
// the contract.
func Select(ctx context.Context, cfg Config) (Provider, error) {
	switch {
	case cfg.AWS.KeyID != "" && cfg.AWS.Region != "":
		p, err := NewAWSKMSSigner(ctx, cfg.AWS)
		if err != nil {
			return nil, fmt.Errorf("configuring aws kms provider: %w", err)
		}
		log.Infow("signing provider selected", "provider", p.Name(), "key_id", cfg.AWS.KeyID)
		return p, nil

	case cfg.GCP.KeyName != "":
		p, err := NewGCPKMSSigner(ctx, cfg.GCP)
		if err != nil {
			return nil, fmt.Errorf("configuring cloud kms provider: %w", err)
		}
		log.Infow("signing provider selected", "provider", p.Name(), "key_name", cfg.GCP.KeyName)
		return p, nil

	case cfg.Azure.VaultURL != "" && cfg.Azure.KeyName != "":
		p, err := NewAzureKeyVaultSigner(cfg.Azure)
		if err != nil {
			return nil, fmt.Errorf("configuring key vault provider: %w", err)
		}
		log.Infow("signing provider selected", "provider", p.Name(), "vault", cfg.Azure.VaultURL)
		return p, nil

	default:
		log.Warnw("NO CLOUD SIGNING PROVIDER CONFIGURED - falling back to local key storage",
			"provider", "local",
			"key_dir", cfg.Local.KeyDir,
			"warning", "local keys are a development fallback and must not be used in production")
		p, err := NewLocalSigner(cfg.Local.KeyDir)
		if err != nil {
			return nil, fmt.Errorf("configuring local provider: %w", err)
		}
		return p, nil
	}
}
