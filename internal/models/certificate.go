package models

// WipeDetails is the attested copy of a validated WipeRecord embedded in
// a certificate, plus the derived human-readable duration.
type WipeDetails struct {
	DeviceID     string `json:"deviceId"`
	SerialNumber string `json:"serialNumber"`
	Algorithm    string `json:"algorithm"`
	Passes       int    `json:"passes"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Status       string `json:"status"`
	Verification bool   `json:"verification"`
	Duration     string `json:"duration"`
}

// CertificateMetadata carries auxiliary facts about the submission. It
// is included in the signed bytes, so it is frozen at issuance like
// everything else in the payload.
type CertificateMetadata struct {
	ToolVersion   string `json:"toolVersion"`
	SubmittedAt   string `json:"submittedAt"`
	SourceAddress string `json:"sourceAddress"`
}

// Certificate is a signed attestation that a device underwent a specific
// wipe procedure.
//
// DataHash is the hex SHA-256 of the canonical form of all fields except
// DataHash and Signature. Signature is the base64 signature over the
// canonical form that additionally includes DataHash. Both are write-once;
// the certificate is immutable after issuance.
type Certificate struct {
	CertificateID string              `json:"certificateId"`
	Timestamp     string              `json:"timestamp"`
	Issuer        string              `json:"issuer"`
	WipeDetails   WipeDetails         `json:"wipeDetails"`
	Metadata      CertificateMetadata `json:"metadata"`
	DataHash      string              `json:"dataHash"`
	Signature     string              `json:"signature"`
}

// Verification verdict reason codes. These are results, not errors: a
// tampered or unknown certificate is an expected negative outcome.
const (
	ReasonNotFound         = "not_found"
	ReasonDataTampered     = "data_tampered"
	ReasonInvalidSignature = "invalid_signature"
)

// VerificationResult is the outcome of verifying a stored certificate.
type VerificationResult struct {
	Valid       bool         `json:"valid"`
	Reason      string       `json:"reason,omitempty"`
	Certificate *Certificate `json:"certificate,omitempty"`
}
