package domain

import (
	"net/url"
	"strings"
)

// ValidateJob checks that a job names a dealer and two absolute http(s) feed URLs.
func ValidateJob(j Job) error {
	if strings.TrimSpace(j.DealerID) == "" {
		return NewValidationError("dealer_id", j.DealerID, ErrInvalidJob)
	}
	if err := validateFeedURL("crm_feed_url", j.CRMFeedURL); err != nil {
		return err
	}
	return validateFeedURL("aggregator_feed_url", j.AggregatorFeedURL)
}

func validateFeedURL(field, raw string) error {
	if raw == "" {
		return NewValidationError(field, raw, ErrInvalidJob)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return NewValidationError(field, raw, ErrInvalidURL)
	}
	return nil
}
