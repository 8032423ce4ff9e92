// Package status looks up live inventory status for a VIN on the GM vehicle
// shopping API and classifies feed discrepancies from the response.
package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/WessleyAI/dealer-reconcile/pkg/fn"
	"github.com/WessleyAI/dealer-reconcile/pkg/resilience"
)

// VehicleStatus is the part of the vehicle API response the classifier reads.
// Both objects are optional.
type VehicleStatus struct {
	MathBox         *MathBox         `json:"mathBox"`
	InventoryStatus *InventoryStatus `json:"inventoryStatus"`
}

// MathBox carries pricing details, including recall notices.
type MathBox struct {
	RecallInfo string `json:"recallInfo"`
}

// InventoryStatus is the GM inventory state code, e.g. "Rtl_Intrans".
type InventoryStatus struct {
	Name string `json:"name"`
}

// RecallInfo returns mathBox.recallInfo or "".
func (v *VehicleStatus) RecallInfo() string {
	if v == nil || v.MathBox == nil {
		return ""
	}
	return v.MathBox.RecallInfo
}

// StatusName returns inventoryStatus.name or "".
func (v *VehicleStatus) StatusName() string {
	if v == nil || v.InventoryStatus == nil {
		return ""
	}
	return v.InventoryStatus.Name
}

// ErrTransport marks network-level failures talking to the status API.
var ErrTransport = errors.New("status api transport error")

// HTTPError is a non-2xx response from the status API.
type HTTPError struct {
	VIN  string
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status api: vin %s: http %d", e.VIN, e.Code)
}

// Transient reports whether err is worth retrying and counts against the
// remote service: transport failures, 429 and 5xx.
func Transient(err error) bool {
	if errors.Is(err, ErrTransport) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code == 429 || he.Code >= 500
	}
	return false
}

// Config controls the status API client.
type Config struct {
	BaseURL    string
	PostalCode string
	Locale     string
	UserAgent  string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// RatePerSecond and Burst pace outgoing requests; RatePerSecond <= 0 disables pacing.
	RatePerSecond float64
	Burst         int
	Retry         fn.RetryOpts
	Breaker       resilience.BreakerOpts
}

const (
	DefaultBaseURL   = "https://cws.gm.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		PostalCode:    "48640",
		Locale:        "en_US",
		UserAgent:     DefaultUserAgent,
		Timeout:       15 * time.Second,
		RatePerSecond: 5,
		Burst:         5,
		Retry:         fn.DefaultRetry,
		Breaker:       resilience.DefaultBreakerOpts,
	}
}
