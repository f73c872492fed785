package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

// The serve command must run with the exact config the root command
// loaded, including --config file settings. A configured cloud signing
// key that gets lost between the two would silently demote the service
// to the local fallback signer.
func TestServeRunsWithConfigFileSettings(t *testing.T) {
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

	oldFile, oldCfg := cfgFile, cfg
	t.Cleanup(func() { cfgFile, cfg = oldFile, oldCfg })

	cfgFile = path
	if err := initConfig(); err != nil {
		t.Fatalf("loading config: %v", err)
	}

	got := provideConfig()
	if got == nil {
		t.Fatal("serve would run without a config")
	}
	if got.Signing.AWSKeyID != "arn:aws:kms:us-east-1:000000000000:key/abc" {
		t.Errorf("aws key id from the config file not visible to serve, got %q", got.Signing.AWSKeyID)
	}
	if got.Signing.AWSRegion != "us-east-1" {
		t.Errorf("aws region from the config file not visible to serve, got %q", got.Signing.AWSRegion)
	}
	if got.Issuer.Organization != "Acme Wipes" {
		t.Errorf("issuer organization from the config file not visible to serve, got %q", got.Issuer.Organization)
	}
}
