package certifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/models"
	"github.com/mehul-tandon/WipeOut/internal/signing"
	"github.com/mehul-tandon/WipeOut/internal/store"
)

// unavailableSigner simulates a cloud provider outage.
type unavailableSigner struct{}

func (unavailableSigner) Name() string { return "unavailable" }
func (unavailableSigner) Sign(context.Context, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: connection refused", signing.ErrUnavailable)
}
func (unavailableSigner) Verify(context.Context, []byte, []byte) (bool, error) {
	return false, fmt.Errorf("%w: connection refused", signing.ErrUnavailable)
}
func (unavailableSigner) PublicKeyPEM() ([]byte, error) { return nil, nil }

func testConfig() *config.Config {
	return &config.Config{
		Issuer: config.IssuerConfig{Organization: "WipeOut Test"},
		Validation: config.ValidationConfig{
			MinWipeDuration: 6 * time.Second,
			MaxWipeDuration: 7 * 24 * time.Hour,
		},
	}
}

// tamperStore wraps the memory store and lets tests substitute a
// mutated payload on reads, simulating tampering with persisted state.
type tamperStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	override *models.Certificate
}

func (s *tamperStore) Get(ctx context.Context, id string) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override != nil && s.override.CertificateID == id {
		copied := *s.override
		return &copied, nil
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *tamperStore) tamper(cert *models.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = cert
}

func newTestService(t *testing.T) (*Service, *tamperStore) {
	t.Helper()
	signer, err := signing.NewLocalSigner(t.TempDir())
	if err != nil {
		t.Fatalf("creating signer: %v", err)
	}
	ts := &tamperStore{MemoryStore: store.NewMemoryStore()}
	svc := New(ServiceParams{Store: ts, Signer: signer, Config: testConfig()})
	return svc, ts
}

func testRecord() models.WipeRecord {
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	return models.WipeRecord{
		DeviceID:     "dev-1",
		SerialNumber: "SN1",
		Algorithm:    models.AlgorithmDoD,
		Passes:       3,
		StartTime:    start.Format(time.RFC3339),
		EndTime:      start.Add(90 * time.Second).Format(time.RFC3339),
		Status:       models.StatusSuccess,
		Verification: true,
	}
}

func TestIssueThenVerify(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cert, err := svc.Issue(ctx, IssueParams{
		Record:        testRecord(),
		ToolVersion:   "SecureWiper/1.0.0",
		SourceAddress: "10.0.0.5",
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if cert.CertificateID == "" {
		t.Error("expected a certificate id")
	}
	if cert.Issuer != "WipeOut Test" {
		t.Errorf("unexpected issuer %q", cert.Issuer)
	}
	if cert.WipeDetails.Duration != "1m 30s" {
		t.Errorf("expected duration \"1m 30s\", got %q", cert.WipeDetails.Duration)
	}
	if len(cert.DataHash) != 64 {
		t.Errorf("expected hex SHA-256 data hash, got %q", cert.DataHash)
	}

	res, err := svc.Verify(ctx, cert.CertificateID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid verdict, got reason %q", res.Reason)
	}
	if res.Certificate == nil || res.Certificate.CertificateID != cert.CertificateID {
		t.Error("expected verified payload to be returned")
	}
}

func TestVerifyUnknownIDIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Verify(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("verify returned an error for a missing id: %v", err)
	}
	if res.Valid {
		t.Fatal("expected invalid verdict")
	}
	if res.Reason != models.ReasonNotFound {
		t.Errorf("expected reason %q, got %q", models.ReasonNotFound, res.Reason)
	}
}

func TestTamperedFieldsAreDetected(t *testing.T) {
	ctx := context.Background()

	tamper := []struct {
		name   string
		mutate func(*models.Certificate)
	}{
		{"wipeDetails.deviceId", func(c *models.Certificate) { c.WipeDetails.DeviceID = "dev-other" }},
		{"wipeDetails.passes", func(c *models.Certificate) { c.WipeDetails.Passes = 1 }},
		{"wipeDetails.status", func(c *models.Certificate) { c.WipeDetails.Status = models.StatusFailed }},
		{"metadata.toolVersion", func(c *models.Certificate) { c.Metadata.ToolVersion = "evil/9.9" }},
		{"timestamp", func(c *models.Certificate) { c.Timestamp = "2020-01-01T00:00:00Z" }},
		{"issuer", func(c *models.Certificate) { c.Issuer = "Forger Inc" }},
	}

	for _, tc := range tamper {
		t.Run(tc.name, func(t *testing.T) {
			svc, mem := newTestService(t)
			cert, err := svc.Issue(ctx, IssueParams{Record: testRecord()})
			if err != nil {
				t.Fatalf("issue failed: %v", err)
			}

			stored, err := mem.Get(ctx, cert.CertificateID)
			if err != nil {
				t.Fatalf("loading stored certificate: %v", err)
			}
			tc.mutate(stored)
			mem.tamper(stored)

			res, err := svc.Verify(ctx, cert.CertificateID)
			if err != nil {
				t.Fatalf("verify failed: %v", err)
			}
			if res.Valid {
				t.Fatal("expected tampering to be detected")
			}
			if res.Reason != models.ReasonDataTampered {
				t.Errorf("expected reason %q, got %q", models.ReasonDataTampered, res.Reason)
			}
		})
	}
}

func TestSignatureTamperIsInvalidSignature(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	cert, err := svc.Issue(ctx, IssueParams{Record: testRecord()})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	stored, err := mem.Get(ctx, cert.CertificateID)
	if err != nil {
		t.Fatalf("loading stored certificate: %v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(stored.Signature)
	if err != nil {
		t.Fatalf("decoding signature: %v", err)
	}
	sig[0] ^= 0xff
	stored.Signature = base64.StdEncoding.EncodeToString(sig)
	mem.tamper(stored)

	res, err := svc.Verify(ctx, cert.CertificateID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Valid {
		t.Fatal("expected invalid verdict")
	}
	if res.Reason != models.ReasonInvalidSignature {
		t.Errorf("expected reason %q, got %q", models.ReasonInvalidSignature, res.Reason)
	}
}

func TestIssueRejectsInvalidRecord(t *testing.T) {
	svc, _ := newTestService(t)

	r := testRecord()
	r.Algorithm = models.AlgorithmGutmann // gutmann with 3 passes
	_, err := svc.Issue(context.Background(), IssueParams{Record: r})
	if !errors.Is(err, ErrNotValidated) {
		t.Errorf("expected ErrNotValidated, got %v", err)
	}
}

func TestSigningOutageBlocksIssuance(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := New(ServiceParams{Store: mem, Signer: unavailableSigner{}, Config: testConfig()})

	_, err := svc.Issue(context.Background(), IssueParams{Record: testRecord()})
	if !errors.Is(err, signing.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// Nothing may be persisted when signing fails.
	if _, err := mem.Get(context.Background(), "any"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected empty store, got %v", err)
	}
}

func TestSigningOutageDuringVerifyIsNotAVerdict(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	cert, err := svc.Issue(ctx, IssueParams{Record: testRecord()})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Same store, provider now unreachable.
	broken := New(ServiceParams{Store: mem, Signer: unavailableSigner{}, Config: testConfig()})
	res, err := broken.Verify(ctx, cert.CertificateID)
	if !errors.Is(err, signing.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got result=%+v err=%v", res, err)
	}
}

func TestConcurrentIssuance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	const n = 10
	certs := make([]*models.Certificate, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := testRecord()
			r.DeviceID = fmt.Sprintf("dev-%d", i)
			certs[i], errs[i] = svc.Issue(ctx, IssueParams{Record: r})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("issue %d failed: %v", i, errs[i])
		}
		if seen[certs[i].CertificateID] {
			t.Fatalf("duplicate certificate id %s", certs[i].CertificateID)
		}
		seen[certs[i].CertificateID] = true

		res, err := svc.Verify(ctx, certs[i].CertificateID)
		if err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
		if !res.Valid {
			t.Errorf("certificate %d not valid: %s", i, res.Reason)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m 30s"},
		{time.Minute, "1m"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{26*time.Hour + 30*time.Second, "1d 2h 30s"},
		{0, "0s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
