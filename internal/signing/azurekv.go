package signing

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
)

// AzureKeyVaultSigner signs with a key held in Azure Key Vault. The key
// never leaves vault custody; both sign and verify are remote calls.
type AzureKeyVaultSigner struct {
	client  *azkeys.Client
	keyName string
}

// NewAzureKeyVaultSigner creates a signer for the configured vault key
// using the ambient Azure credential chain (environment, managed
// identity, CLI). The key must be an RSA key; RS256 is used.
func NewAzureKeyVaultSigner(cfg AzureConfig) (*AzureKeyVaultSigner, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain Azure credential: %w", err)
	}
	client, err := azkeys.NewClient(cfg.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client: %w", err)
	}
	return &AzureKeyVaultSigner{client: client, keyName: cfg.KeyName}, nil
}

func (s *AzureKeyVaultSigner) Name() string { return "azure-keyvault" }

func (s *AzureKeyVaultSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	// Empty version pins to the latest key version.
	resp, err := s.client.Sign(ctx, s.keyName, "", azkeys.SignParameters{
		Algorithm: to.Ptr(azkeys.SignatureAlgorithmRS256),
		Value:     digest[:],
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: key vault sign: %v", ErrUnavailable, err)
	}
	return resp.Result, nil
}

func (s *AzureKeyVaultSigner) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	digest := sha256.Sum256(data)
	resp, err := s.client.Verify(ctx, s.keyName, "", azkeys.VerifyParameters{
		Algorithm: to.Ptr(azkeys.SignatureAlgorithmRS256),
		Digest:    digest[:],
		Signature: signature,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("%w: key vault verify: %v", ErrUnavailable, err)
	}
	return resp.Value != nil && *resp.Value, nil
}

// PublicKeyPEM returns nil: the key pair stays in vault custody.
func (s *AzureKeyVaultSigner) PublicKeyPEM() ([]byte, error) { return nil, nil }

var _ Provider = (*AzureKeyVaultSigner)(nil)
