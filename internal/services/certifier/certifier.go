// Package certifier implements the certificate issuance and
// verification pipelines: it turns validated wipe records into signed,
// persisted certificates and independently re-derives the issuance
// computation to verify them.
package certifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/mehul-tandon/WipeOut/internal/canonical"
	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/models"
	"github.com/mehul-tandon/WipeOut/internal/signing"
	"github.com/mehul-tandon/WipeOut/internal/store"
	"github.com/mehul-tandon/WipeOut/internal/validate"
)

var log = logging.Logger("service/certifier")

// ErrEncoding wraps canonicalization failures. These are programmer
// errors (a payload shape with no canonical form), fatal to the request
// and not retryable.
var ErrEncoding = errors.New("payload has no canonical form")

// ErrNotValidated is returned when Issue receives a record that fails
// validation. Callers are expected to validate first and report the
// full violation list; this is a backstop, not the reporting path.
var ErrNotValidated = errors.New("record failed validation")

// Service runs the issuance and verification pipelines against a
// certificate store and the process-wide signing provider. It holds no
// mutable state; operations on distinct certificate ids are fully
// independent and safe to run concurrently.
type Service struct {
	store  store.Store
	signer signing.Provider
	issuer string
	limits validate.Limits

	now   func() time.Time
	newID func() string
}

type ServiceParams struct {
	fx.In

	// the store certificates are persisted to
	Store store.Store

	// the signing provider resolved once at startup
	Signer signing.Provider

	Config *config.Config
}

func New(p ServiceParams) *Service {
	return &Service{
		store:  p.Store,
		signer: p.Signer,
		issuer: p.Config.Issuer.Organization,
		limits: validate.Limits{
			MinDuration: p.Config.Validation.MinWipeDuration,
			MaxDuration: p.Config.Validation.MaxWipeDuration,
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Validate checks a wipe record against the configured limits and
// returns every violation at once.
func (s *Service) Validate(record models.WipeRecord) []validate.FieldError {
	return validate.Record(record, s.limits)
}

// IssueParams carries a validated wipe record plus the non-attested
// submission context that goes into certificate metadata.
type IssueParams struct {
	Record        models.WipeRecord
	ToolVersion   string
	SourceAddress string
}

// Issue assigns a fresh certificate id, signs the attestation and
// persists it. Either a fully signed certificate is persisted and
// returned, or nothing is visible to readers: persistence is atomic and
// happens last.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*models.Certificate, error) {
	if errs := validate.Record(p.Record, s.limits); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotValidated, errs)
	}

	duration, err := wipeDuration(p.Record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotValidated, err)
	}

	now := s.now().UTC()
	cert := &models.Certificate{
		CertificateID: s.newID(),
		Timestamp:     now.Format(time.RFC3339),
		Issuer:        s.issuer,
		WipeDetails: models.WipeDetails{
			DeviceID:     p.Record.DeviceID,
			SerialNumber: p.Record.SerialNumber,
			Algorithm:    p.Record.Algorithm,
			Passes:       p.Record.Passes,
			StartTime:    p.Record.StartTime,
			EndTime:      p.Record.EndTime,
			Status:       p.Record.Status,
			Verification: p.Record.Verification,
			Duration:     duration,
		},
		Metadata: models.CertificateMetadata{
			ToolVersion:   p.ToolVersion,
			SubmittedAt:   now.Format(time.RFC3339),
			SourceAddress: p.SourceAddress,
		},
	}

	attested, err := canonical.Marshal(attestedFields(cert))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	cert.DataHash = canonical.Digest(attested)

	signable, err := canonical.Marshal(signedFields(cert))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	sig, err := s.signer.Sign(ctx, signable)
	if err != nil {
		return nil, fmt.Errorf("signing certificate %s: %w", cert.CertificateID, err)
	}
	cert.Signature = base64.StdEncoding.EncodeToString(sig)

	if err := s.store.Put(ctx, cert); err != nil {
		return nil, fmt.Errorf("persisting certificate %s: %w", cert.CertificateID, err)
	}

	log.Infow("certificate issued",
		"certificate_id", cert.CertificateID,
		"device_id", cert.WipeDetails.DeviceID,
		"algorithm", cert.WipeDetails.Algorithm,
		"provider", s.signer.Name())
	return cert, nil
}

// Verify loads a persisted certificate and re-derives the issuance
// computation. The digest check runs before the signature check: a
// digest mismatch is a cheap local short-circuit ahead of a potentially
// remote signature call. Verification never mutates the loaded payload.
//
// A tampered, forged or unknown certificate is a negative verdict, not
// an error. An error return means validity could not be determined at
// all (store or provider unavailable) and must not be reported as a
// verdict.
func (s *Service) Verify(ctx context.Context, id string) (*models.VerificationResult, error) {
	cert, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &models.VerificationResult{Valid: false, Reason: models.ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("loading certificate %s: %w", id, err)
	}

	attested, err := canonical.Marshal(attestedFields(cert))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if canonical.Digest(attested) != cert.DataHash {
		log.Warnw("certificate data hash mismatch", "certificate_id", id)
		return &models.VerificationResult{Valid: false, Reason: models.ReasonDataTampered}, nil
	}

	signable, err := canonical.Marshal(signedFields(cert))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	sig, err := base64.StdEncoding.DecodeString(cert.Signature)
	if err != nil {
		// Not decodable means not a signature our signer ever produced.
		return &models.VerificationResult{Valid: false, Reason: models.ReasonInvalidSignature}, nil
	}

	ok, err := s.signer.Verify(ctx, signable, sig)
	if err != nil {
		// Could not determine validity. Never fabricate a verdict.
		return nil, fmt.Errorf("verifying certificate %s: %w", id, err)
	}
	if !ok {
		log.Warnw("certificate signature invalid", "certificate_id", id)
		return &models.VerificationResult{Valid: false, Reason: models.ReasonInvalidSignature}, nil
	}

	return &models.VerificationResult{Valid: true, Certificate: cert}, nil
}

// Get returns a persisted certificate without verifying it.
func (s *Service) Get(ctx context.Context, id string) (*models.Certificate, error) {
	return s.store.Get(ctx, id)
}

// attestedFields builds the canonical payload covered by the data hash:
// everything except dataHash and signature. This is the single encoding
// both pipelines share; issuance and verification must never diverge on
// which fields are covered.
func attestedFields(c *models.Certificate) map[string]interface{} {
	return map[string]interface{}{
		"certificateId": c.CertificateID,
		"timestamp":     c.Timestamp,
		"issuer":        c.Issuer,
		"wipeDetails": map[string]interface{}{
			"deviceId":     c.WipeDetails.DeviceID,
			"serialNumber": c.WipeDetails.SerialNumber,
			"algorithm":    c.WipeDetails.Algorithm,
			"passes":       c.WipeDetails.Passes,
			"startTime":    c.WipeDetails.StartTime,
			"endTime":      c.WipeDetails.EndTime,
			"status":       c.WipeDetails.Status,
			"verification": c.WipeDetails.Verification,
			"duration":     c.WipeDetails.Duration,
		},
		"metadata": map[string]interface{}{
			"toolVersion":   c.Metadata.ToolVersion,
			"submittedAt":   c.Metadata.SubmittedAt,
			"sourceAddress": c.Metadata.SourceAddress,
		},
	}
}

// signedFields is the canonical payload covered by the signature: the
// attested fields plus the data hash itself.
func signedFields(c *models.Certificate) map[string]interface{} {
	m := attestedFields(c)
	m["dataHash"] = c.DataHash
	return m
}

func wipeDuration(r models.WipeRecord) (string, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return "", fmt.Errorf("parsing startTime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return "", fmt.Errorf("parsing endTime: %w", err)
	}
	return formatDuration(end.Sub(start)), nil
}

// formatDuration renders a duration as e.g. "1m 30s" or "2h 5m",
// omitting zero-valued leading units.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := d - minutes*time.Minute

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", int(seconds/time.Second)))
	}
	return strings.Join(parts, " ")
}
