package models

import (
	"time"

	"github.com/google/uuid"
)

// PreferenceDimension is the closed set of negotiation dimensions a vendor
// profile tracks. Raw external parameter names are mapped onto these five
// keys; anything else is dropped at the boundary.
type PreferenceDimension string

const (
	DimensionPrice        PreferenceDimension = "price"
	DimensionPaymentTerms PreferenceDimension = "paymentTerms"
	DimensionDelivery     PreferenceDimension = "delivery"
	DimensionWarranty     PreferenceDimension = "warranty"
	DimensionQuality      PreferenceDimension = "quality"
)

// PreferenceDimensions is the fixed iteration order used for tie-breaking
// when ranking scores.
var PreferenceDimensions = []PreferenceDimension{
	DimensionPrice,
	DimensionPaymentTerms,
	DimensionDelivery,
	DimensionWarranty,
	DimensionQuality,
}

// SelectionRecord is one remembered MESO choice.
type SelectionRecord struct {
	Round            int       `json:"round"`
	SelectedOptionID string    `json:"selected_option_id"`
	Emphasis         []string  `json:"emphasis"`
	Timestamp        time.Time `json:"timestamp"`
}

// VendorPreferenceProfile accumulates what a vendor appears to care about,
// per deal. Mutated only by the preference tracker, which always returns a
// fresh copy.
type VendorPreferenceProfile struct {
	VendorID   uuid.UUID                       `json:"vendor_id"`
	DealID     uuid.UUID                       `json:"deal_id"`
	Scores     map[PreferenceDimension]float64 `json:"scores"`
	Rounds     int                             `json:"rounds"`
	Confidence float64                         `json:"confidence"`
	Primary    PreferenceDimension             `json:"primary_preference"`
	Secondary  *PreferenceDimension            `json:"secondary_preference,omitempty"`
	History    []SelectionRecord               `json:"history"`
	UpdatedAt  time.Time                       `json:"updated_at"`
}

// MesoOption is one counter-offer bundle presented to the vendor. The
// engine treats its contents as opaque evidence.
type MesoOption struct {
	OptionID string   `json:"option_id"`
	Emphasis []string `json:"emphasis"`
}

// MesoSelection is the vendor-response interpreter's reading of which
// option the vendor picked and what that implies. InferredPreferences maps
// raw parameter names to adjustment signals in [0,1].
type MesoSelection struct {
	VendorID            uuid.UUID          `json:"vendor_id"`
	DealID              uuid.UUID          `json:"deal_id"`
	Round               int                `json:"round"`
	SelectedOptionID    string             `json:"selected_option_id"`
	InferredPreferences map[string]float64 `json:"inferred_preferences"`
	Timestamp           time.Time          `json:"timestamp"`
}

// PreferenceAdjustment is an ephemeral weight-change recommendation,
// recomputed on demand and never persisted.
type PreferenceAdjustment struct {
	Dimension  PreferenceDimension `json:"dimension"`
	Adjustment float64             `json:"adjustment"`
	Confidence float64             `json:"confidence"`
	Reason     string              `json:"reason"`
}

type SelectionRequest struct {
	Selection MesoSelection `json:"selection" binding:"required"`
	Option    MesoOption    `json:"option" binding:"required"`
}

type ApplyWeightsRequest struct {
	BaseWeights        map[string]int `json:"base_weights" binding:"required"`
	AdjustmentStrength *float64       `json:"adjustment_strength,omitempty" binding:"omitempty,gt=0,lte=1"`
}

type ApplyWeightsResponse struct {
	Weights     map[string]int         `json:"weights"`
	Adjustments []PreferenceAdjustment `json:"adjustments"`
}
