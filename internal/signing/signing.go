// Package signing abstracts who holds the certificate signing key and
// performs sign/verify: a locally persisted RSA key pair, or a key held
// in AWS KMS, Google Cloud KMS or Azure Key Vault custody.
package signing

import (
	"context"
	"errors"
)

// ErrUnavailable wraps infrastructure faults on remote signing calls:
// network errors, timeouts and authorization failures. It is a distinct
// retryable category and must never be reinterpreted as "signature
// invalid" — callers could not determine validity at all.
var ErrUnavailable = errors.New("signing provider unavailable")

// Provider signs and verifies certificate bytes. A provider is chosen
// once at startup and shared for the process lifetime; implementations
// hold no mutable state across calls and are safe for concurrent use.
type Provider interface {
	// Name identifies the backing implementation, e.g. "local" or "aws-kms".
	Name() string

	// Sign returns a signature over data.
	Sign(ctx context.Context, data []byte) ([]byte, error)

	// Verify reports whether signature is valid for data. An invalid
	// signature is (false, nil); (false, err) means the answer could
	// not be determined, with err wrapping ErrUnavailable for
	// infrastructure faults.
	Verify(ctx context.Context, data, signature []byte) (bool, error)

	// PublicKeyPEM returns the PEM-encoded public key, or nil when the
	// key pair never leaves managed custody and verification happens
	// through the provider's own Verify call.
	PublicKeyPEM() ([]byte, error)
}

// Config declares the candidate providers. The first variant whose
// settings are fully present wins; see Select.
type Config struct {
	AWS   AWSConfig
	GCP   GCPConfig
	Azure AzureConfig
	Local LocalConfig
}

// AWSConfig configures the AWS KMS provider.
type AWSConfig struct {
	Region string
	KeyID  string
	// Endpoint may be set for local testing. Do not set for production.
	Endpoint string
}

// GCPConfig configures the Google Cloud KMS provider.
type GCPConfig struct {
	// KeyName is the full resource name of the crypto key version, e.g.
	// projects/p/locations/l/keyRings/r/cryptoKeys/k/cryptoKeyVersions/1
	KeyName string
}

// AzureConfig configures the Azure Key Vault provider.
type AzureConfig struct {
	VaultURL string
	KeyName  string
}

// LocalConfig configures the on-disk RSA provider.
type LocalConfig struct {
	// KeyDir is the directory holding private_key.pem / public_key.pem.
	// The pair is generated on first use if absent.
	KeyDir string
}
