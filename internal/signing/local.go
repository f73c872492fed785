package signing

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
)

var localLog = logging.Logger("signing/local")

const (
	privateKeyFile = "private_key.pem"
	publicKeyFile  = "public_key.pem"
	localKeyBits   = 2048
)

// LocalSigner signs with a 2048-bit RSA key pair persisted on disk.
// Signatures are deterministic PKCS#1 v1.5 over the SHA-256 of the
// input. This is the only variant with an extractable public key.
type LocalSigner struct {
	priv *rsa.PrivateKey
}

// NewLocalSigner loads the key pair from dir, generating and persisting
// one on first use. The private key is written to a temp file and
// linked into place, so the key file appears atomically with its full
// content and the link fails for everyone but one initializer: the
// losers of the race load the winner's key instead of overwriting it.
func NewLocalSigner(dir string) (*LocalSigner, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	privPath := filepath.Join(dir, privateKeyFile)

	if _, err := os.Stat(privPath); err == nil {
		return loadLocalSigner(dir)
	}

	key, err := rsa.GenerateKey(rand.Reader, localKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	tmp, err := os.CreateTemp(dir, ".tmp-key-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp key file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("restricting key file permissions: %w", err)
	}
	if _, err := tmp.Write(privPEM); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing private key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing private key: %w", err)
	}

	if err := os.Link(tmpName, privPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process initialized first; discard our candidate.
			return loadLocalSigner(dir)
		}
		return nil, fmt.Errorf("committing private key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pubPEM, 0o644); err != nil {
		return nil, fmt.Errorf("writing public key: %w", err)
	}

	localLog.Infow("generated new local signing key pair", "dir", dir, "bits", localKeyBits)
	return &LocalSigner{priv: key}, nil
}

func loadLocalSigner(dir string) (*LocalSigner, error) {
	pemData, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", privateKeyFile)
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#1 private key: %w", err)
		}
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#8 private key: %w", err)
		}
		var ok bool
		key, ok = parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("the parsed key is not an RSA private key")
		}
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	// The public key file may be missing if a previous process died
	// between the two writes. It derives from the private key, so
	// restore it.
	pubPath := filepath.Join(dir, publicKeyFile)
	if _, err := os.Stat(pubPath); errors.Is(err, os.ErrNotExist) {
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("encoding public key: %w", err)
		}
		pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
		if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
			return nil, fmt.Errorf("restoring public key: %w", err)
		}
		localLog.Warnw("restored missing public key file", "path", pubPath)
	}

	return &LocalSigner{priv: key}, nil
}

func (s *LocalSigner) Name() string { return "local" }

func (s *LocalSigner) Sign(_ context.Context, data []byte) ([]byte, error) {
	h := sha256.Sum256(data)
	return rsa.SignPKCS1v15(nil, s.priv, crypto.SHA256, h[:])
}

func (s *LocalSigner) Verify(_ context.Context, data, signature []byte) (bool, error) {
	h := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(&s.priv.PublicKey, crypto.SHA256, h[:], signature) == nil, nil
}

func (s *LocalSigner) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

var _ Provider = (*LocalSigner)(nil)
