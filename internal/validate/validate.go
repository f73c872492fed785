// Package validate enforces the business invariants a wipe record must
// satisfy before a certificate may be issued for it.
package validate

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mehul-tandon/WipeOut/internal/models"
)

const maxIdentifierLen = 100

// Default bounds for a plausible wipe duration. Anything outside the
// configured window is rejected, never clamped.
const (
	DefaultMinDuration = 6 * time.Second
	DefaultMaxDuration = 7 * 24 * time.Hour
)

// Limits bounds the accepted wipe duration.
type Limits struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultLimits returns the default duration window.
func DefaultLimits() Limits {
	return Limits{MinDuration: DefaultMinDuration, MaxDuration: DefaultMaxDuration}
}

// FieldError describes a single violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requiredPasses maps algorithms with a fixed pass count.
var requiredPasses = map[string]int{
	models.AlgorithmGutmann: 35,
	models.AlgorithmDoD:     3,
}

var validAlgorithms = map[string]struct{}{
	models.AlgorithmNIST:    {},
	models.AlgorithmDoD:     {},
	models.AlgorithmGutmann: {},
	models.AlgorithmRandom:  {},
}

var validStatuses = map[string]struct{}{
	models.StatusSuccess: {},
	models.StatusFailed:  {},
	models.StatusPartial: {},
}

// Record checks every invariant on a wipe record and returns all
// violations at once. It runs to completion rather than failing fast so
// the submitter can fix everything in a single round trip. A nil return
// means the record is valid.
func Record(r models.WipeRecord, limits Limits) []FieldError {
	var errs []FieldError

	errs = append(errs, checkIdentifier("deviceId", r.DeviceID)...)
	errs = append(errs, checkIdentifier("serialNumber", r.SerialNumber)...)

	if _, ok := validAlgorithms[r.Algorithm]; !ok {
		errs = append(errs, FieldError{"algorithm", fmt.Sprintf("unknown algorithm %q", r.Algorithm)})
	}

	if r.Passes < 1 || r.Passes > 35 {
		errs = append(errs, FieldError{"passes", fmt.Sprintf("must be between 1 and 35, got %d", r.Passes)})
	}
	if want, ok := requiredPasses[r.Algorithm]; ok && r.Passes != want {
		errs = append(errs, FieldError{"passes", fmt.Sprintf("%s requires exactly %d passes, got %d", r.Algorithm, want, r.Passes)})
	}

	if _, ok := validStatuses[r.Status]; !ok {
		errs = append(errs, FieldError{"status", fmt.Sprintf("unknown status %q", r.Status)})
	}

	start, startErr := time.Parse(time.RFC3339, r.StartTime)
	if startErr != nil {
		errs = append(errs, FieldError{"startTime", "must be an RFC3339 timestamp"})
	}
	end, endErr := time.Parse(time.RFC3339, r.EndTime)
	if endErr != nil {
		errs = append(errs, FieldError{"endTime", "must be an RFC3339 timestamp"})
	}

	if startErr == nil && endErr == nil {
		if !end.After(start) {
			errs = append(errs, FieldError{"endTime", "must be after startTime"})
		} else {
			d := end.Sub(start)
			if d < limits.MinDuration {
				errs = append(errs, FieldError{"endTime", fmt.Sprintf("wipe duration %s is below the plausible minimum %s", d, limits.MinDuration)})
			}
			if d > limits.MaxDuration {
				errs = append(errs, FieldError{"endTime", fmt.Sprintf("wipe duration %s exceeds the plausible maximum %s", d, limits.MaxDuration)})
			}
		}
	}

	return errs
}

func checkIdentifier(field, value string) []FieldError {
	if value == "" {
		return []FieldError{{field, "must not be empty"}}
	}
	// The bound is in characters, not bytes; serial numbers are not
	// guaranteed to be ASCII.
	if n := utf8.RuneCountInString(value); n > maxIdentifierLen {
		return []FieldError{{field, fmt.Sprintf("must be at most %d characters, got %d", maxIdentifierLen, n)}}
	}
	return nil
}
