// Package providers wires configuration into the concrete signing
// provider and certificate store used by the serve command.
package providers

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/signing"
	"github.com/mehul-tandon/WipeOut/internal/store"
)

type SignerParams struct {
	fx.In
	Config *config.Config
}

type SignerResult struct {
	fx.Out
	Signer signing.Provider
}

// ProvideSigner resolves the signing provider once for the process
// lifetime. The selection order and the local-fallback warning live in
// signing.Select; this only maps config shapes.
func ProvideSigner(params SignerParams) (SignerResult, error) {
	s, err := signing.Select(context.Background(), signing.Config{
		AWS: signing.AWSConfig{
			Region:   params.Config.Signing.AWSRegion,
			KeyID:    params.Config.Signing.AWSKeyID,
			Endpoint: params.Config.Signing.AWSEndpoint,
		},
		GCP: signing.GCPConfig{
			KeyName: params.Config.Signing.GCPKeyName,
		},
		Azure: signing.AzureConfig{
			VaultURL: params.Config.Signing.AzureVaultURL,
			KeyName:  params.Config.Signing.AzureKeyName,
		},
		Local: signing.LocalConfig{
			KeyDir: params.Config.Signing.LocalKeyDir,
		},
	})
	if err != nil {
		return SignerResult{}, fmt.Errorf("failed to resolve signing provider: %w", err)
	}
	return SignerResult{Signer: s}, nil
}

// ProvideStore builds the certificate store for the configured backend.
func ProvideStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "dynamo":
		return store.NewDynamoDBStore(cfg.Store.Dynamo)
	case "file":
		return store.NewFileStore(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
