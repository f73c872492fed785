package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/models"
	"github.com/mehul-tandon/WipeOut/internal/services/certifier"
	"github.com/mehul-tandon/WipeOut/internal/signing"
	"github.com/mehul-tandon/WipeOut/internal/store"
)

var log = logging.Logger("handlers")

type Handlers struct {
	service       *certifier.Service
	signer        signing.Provider
	publicBaseURL string
}

func NewHandlers(svc *certifier.Service, signer signing.Provider, cfg *config.Config) *Handlers {
	return &Handlers{
		service:       svc,
		signer:        signer,
		publicBaseURL: strings.TrimRight(cfg.Issuer.PublicBaseURL, "/"),
	}
}

func (h *Handlers) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// SubmitWipe accepts a finished wipe record from the wiping tool,
// validates it and issues a signed certificate. A signing or storage
// outage fails the submission with a retryable 503: the service never
// reports a successful submission without certificate data.
func (h *Handlers) SubmitWipe(c echo.Context) error {
	var record models.WipeRecord
	if err := c.Bind(&record); err != nil {
		return c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}

	if errs := h.service.Validate(record); len(errs) > 0 {
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, e.Error())
		}
		return c.JSON(http.StatusBadRequest, models.ValidationErrorResponse{
			Error:  "wipe record failed validation",
			Fields: fields,
		})
	}

	cert, err := h.service.Issue(c.Request().Context(), certifier.IssueParams{
		Record:        record,
		ToolVersion:   c.Request().UserAgent(),
		SourceAddress: c.RealIP(),
	})
	if err != nil {
		var status int
		var message string
		if errors.Is(err, signing.ErrUnavailable) {
			status = http.StatusServiceUnavailable
			message = "signing service unavailable, retry later"
		} else if errors.Is(err, certifier.ErrEncoding) {
			status = http.StatusInternalServerError
			message = "certificate payload could not be encoded"
		} else if errors.Is(err, store.ErrAlreadyExists) {
			status = http.StatusConflict
			message = "certificate already exists"
		} else {
			status = http.StatusServiceUnavailable
			message = "certificate storage unavailable, retry later"
		}
		log.Errorw("failed to issue certificate", "device_id", record.DeviceID, "error", err)
		return c.JSON(status, models.APIResponse{
			Success: false,
			Error:   message,
		})
	}

	return c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "certificate issued",
		Data: models.SubmitResult{
			Certificate:     cert,
			VerificationURL: h.verificationURL(cert.CertificateID),
		},
	})
}

// VerifyCertificate re-derives the issuance computation for a stored
// certificate. Negative verdicts (unknown id, tampered data, invalid
// signature) are 200 responses carrying the verdict; only "could not
// determine validity" is a transport-level error.
func (h *Handlers) VerifyCertificate(c echo.Context) error {
	id := c.Param("id")

	result, err := h.service.Verify(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, signing.ErrUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, models.APIResponse{
				Success: false,
				Error:   "signing service unavailable, verification could not be completed",
			})
		}
		log.Errorw("failed to verify certificate", "certificate_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "verification failed",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// GetCertificate returns the stored payload without verifying it.
func (h *Handlers) GetCertificate(c echo.Context) error {
	id := c.Param("id")

	cert, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.APIResponse{
				Success: false,
				Error:   fmt.Sprintf("certificate %s not found", id),
			})
		}
		log.Errorw("failed to load certificate", "certificate_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "failed to load certificate",
		})
	}

	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: cert})
}

// PublicKey serves the issuer's public key so third parties can check
// locally issued certificates offline. Cloud-custody providers keep the
// key material to themselves; verification then goes through the verify
// endpoint.
func (h *Handlers) PublicKey(c echo.Context) error {
	pem, err := h.signer.PublicKeyPEM()
	if err != nil {
		log.Errorw("failed to read public key", "error", err)
		return c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "failed to read public key",
		})
	}
	if pem == nil {
		return c.JSON(http.StatusOK, map[string]string{
			"provider": h.signer.Name(),
			"note":     "key material is held in managed custody; use the verify endpoint",
		})
	}
	return c.Blob(http.StatusOK, "application/x-pem-file", pem)
}

func (h *Handlers) verificationURL(id string) string {
	return fmt.Sprintf("%s/api/certificate/verify/%s", h.publicBaseURL, id)
}
