package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsNestedKeysFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `issuer:
  organization: Acme Wipes
signing:
  aws_region: us-east-1
  aws_key_id: arn:aws:kms:us-east-1:000000000000:key/abc
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	v := New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Issuer.Organization != "Acme Wipes" {
		t.Errorf("unexpected issuer organization %q", cfg.Issuer.Organization)
	}
	if cfg.Signing.AWSRegion != "us-east-1" {
		t.Errorf("unexpected aws region %q", cfg.Signing.AWSRegion)
	}
	if cfg.Signing.AWSKeyID != "arn:aws:kms:us-east-1:000000000000:key/abc" {
		t.Errorf("unexpected aws key id %q", cfg.Signing.AWSKeyID)
	}
}

func TestEnvVariablesReachNestedKeys(t *testing.T) {
	t.Setenv("WIPEOUT_ISSUER_ORGANIZATION", "Env Wipes")
	t.Setenv("WIPEOUT_SIGNING_AWS_REGION", "eu-west-1")
	t.Setenv("WIPEOUT_SIGNING_AWS_KEY_ID", "arn:aws:kms:eu-west-1:000000000000:key/def")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Issuer.Organization != "Env Wipes" {
		t.Errorf("issuer organization not read from environment, got %q", cfg.Issuer.Organization)
	}
	if cfg.Signing.AWSRegion != "eu-west-1" {
		t.Errorf("aws region not read from environment, got %q", cfg.Signing.AWSRegion)
	}
	if cfg.Signing.AWSKeyID != "arn:aws:kms:eu-west-1:000000000000:key/def" {
		t.Errorf("aws key id not read from environment, got %q", cfg.Signing.AWSKeyID)
	}
}

func TestDefaultsApplyWithoutAnySource(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected default port %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("unexpected default store backend %q", cfg.Store.Backend)
	}
	if cfg.Signing.LocalKeyDir != "keys" {
		t.Errorf("unexpected default key dir %q", cfg.Signing.LocalKeyDir)
	}
}
