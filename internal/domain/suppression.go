package domain

import (
	"fmt"
	"strings"
	"time"
)

// Opt-out request provenance.
const (
	OptOutMethodManual   = "MANUAL"
	OptOutMethodKeyword  = "KEYWORD"
	OptOutMethodCallback = "CALLBACK"
)

// optOutKeywords are inbound message bodies treated as opt-out requests.
var optOutKeywords = []string{"STOP", "PARAR", "CANCELAR", "NO", "BAJA", "SALIR"}

// SuppressionEntry is a permanent per-tenant opt-out of a phone number.
// Entries are never expired automatically; reversal is a manual operation
// outside this service.
type SuppressionEntry struct {
	ID          string
	TenantID    string
	PhoneNumber string
	Method      string
	OptedOutAt  time.Time
}

func (e *SuppressionEntry) Validate() error {
	if strings.TrimSpace(e.TenantID) == "" {
		return fmt.Errorf("%w: tenantId is required", ErrValidation)
	}
	if strings.TrimSpace(e.PhoneNumber) == "" {
		return fmt.Errorf("%w: phoneNumber is required", ErrValidation)
	}
	return nil
}

// IsOptOutKeyword reports whether an inbound message body is an opt-out
// request: the body equals a keyword or starts with one.
func IsOptOutKeyword(body string) bool {
	upper := strings.ToUpper(strings.TrimSpace(body))
	for _, keyword := range optOutKeywords {
		if upper == keyword || strings.HasPrefix(upper, keyword+" ") {
			return true
		}
	}
	return false
}
