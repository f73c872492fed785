package models

// Wipe algorithm identifiers accepted from the wiping tool.
const (
	AlgorithmNIST    = "nist"
	AlgorithmDoD     = "dod"
	AlgorithmGutmann = "gutmann"
	AlgorithmRandom  = "random"
)

// Wipe completion statuses reported by the wiping tool.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

// WipeRecord is the result of a completed wipe operation as reported by
// the upstream wiping tool. It is validated once on submission and never
// mutated afterwards.
//
// StartTime and EndTime are RFC3339 UTC strings. All attested fields are
// strings, integers or booleans so the record has an unambiguous
// canonical form.
type WipeRecord struct {
	DeviceID     string `json:"deviceId"`
	SerialNumber string `json:"serialNumber"`
	Algorithm    string `json:"algorithm"`
	Passes       int    `json:"passes"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Status       string `json:"status"`
	Verification bool   `json:"verification,omitempty"`
}
