package signing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLocalSignerGeneratesKeyPairOnce(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLocalSigner(dir)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	for _, name := range []string{privateKeyFile, publicKeyFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	// A second signer in the same dir must load, not regenerate.
	s2, err := NewLocalSigner(dir)
	if err != nil {
		t.Fatalf("failed to load existing signer: %v", err)
	}

	pem1, err := s.PublicKeyPEM()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	pem2, err := s2.PublicKeyPEM()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if !bytes.Equal(pem1, pem2) {
		t.Error("second initialization produced a different key pair")
	}
}

func TestLocalSignerSignVerify(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalSigner(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	data := []byte("attested payload bytes")
	sig, err := s.Sign(ctx, data)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	// PKCS#1 v1.5 signatures are deterministic.
	sig2, err := s.Sign(ctx, data)
	if err != nil {
		t.Fatalf("second sign failed: %v", err)
	}
	if !bytes.Equal(sig, sig2) {
		t.Error("expected deterministic signatures for identical input")
	}

	ok, err := s.Verify(ctx, data, sig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("expected signature to verify")
	}

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xff
	ok, err = s.Verify(ctx, tampered, sig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("expected tampered data to fail verification")
	}

	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 0xff
	ok, err = s.Verify(ctx, data, badSig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("expected mangled signature to fail verification")
	}
}

func TestLocalSignerConcurrentFirstUse(t *testing.T) {
	dir := t.TempDir()

	const n = 8
	signers := make([]*LocalSigner, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			signers[i], errs[i] = NewLocalSigner(dir)
		}(i)
	}
	wg.Wait()

	var ref []byte
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("signer %d failed: %v", i, errs[i])
		}
		pem, err := signers[i].PublicKeyPEM()
		if err != nil {
			t.Fatalf("signer %d public key: %v", i, err)
		}
		if ref == nil {
			ref = pem
		} else if !bytes.Equal(ref, pem) {
			t.Fatalf("signer %d ended up with a different key pair", i)
		}
	}
}

func TestLocalSignerRestoresMissingPublicKey(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLocalSigner(dir); err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	pubPath := filepath.Join(dir, publicKeyFile)
	if err := os.Remove(pubPath); err != nil {
		t.Fatalf("removing public key: %v", err)
	}

	if _, err := NewLocalSigner(dir); err != nil {
		t.Fatalf("failed to reload signer: %v", err)
	}
	if _, err := os.Stat(pubPath); err != nil {
		t.Errorf("expected public key to be restored: %v", err)
	}
}

func TestSelectFallsBackToLocal(t *testing.T) {
	p, err := Select(context.Background(), Config{
		Local: LocalConfig{KeyDir: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if p.Name() != "local" {
		t.Errorf("expected local fallback, got %s", p.Name())
	}
	pem, err := p.PublicKeyPEM()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if len(pem) == 0 {
		t.Error("local provider must expose its public key")
	}
}
