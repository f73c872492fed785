package signing

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// AWSKMSSigner signs with an asymmetric key held in AWS KMS. The key
// never leaves KMS custody; verification calls back into the service.
type AWSKMSSigner struct {
	client *kms.Client
	keyID  string
}

// NewAWSKMSSigner creates a signer for the configured KMS key. The key
// must be an RSA signing key; RSASSA_PKCS1_V1_5_SHA_256 is used so
// signatures line up with the local variant.
func NewAWSKMSSigner(ctx context.Context, cfg AWSConfig) (*AWSKMSSigner, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSKMSSigner{
		client: kms.NewFromConfig(awsCfg),
		keyID:  cfg.KeyID,
	}, nil
}

func (s *AWSKMSSigner) Name() string { return "aws-kms" }

func (s *AWSKMSSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest[:],
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: aws kms sign: %v", ErrUnavailable, err)
	}
	return out.Signature, nil
}

func (s *AWSKMSSigner) Verify(ctx context.Context, data, signature []byte) (bool, error) {
	digest := sha256.Sum256(data)
	out, err := s.client.Verify(ctx, &kms.VerifyInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest[:],
		MessageType:      kmstypes.MessageTypeDigest,
		Signature:        signature,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
	})
	if err != nil {
		// KMS reports a bad signature as an error, not a false result.
		// That is a definitive negative verdict, not an outage.
		var invalidSig *kmstypes.KMSInvalidSignatureException
		if errors.As(err, &invalidSig) {
			return false, nil
		}
		return false, fmt.Errorf("%w: aws kms verify: %v", ErrUnavailable, err)
	}
	return out.SignatureValid, nil
}

// PublicKeyPEM returns nil: the key pair stays in KMS custody.
func (s *AWSKMSSigner) PublicKeyPEM() ([]byte, error) { return nil, nil }

var _ Provider = (*AWSKMSSigner)(nil)
