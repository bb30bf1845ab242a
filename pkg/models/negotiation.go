package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionAction is the zone an evaluated offer falls into.
type DecisionAction string

const (
	ActionAccept     DecisionAction = "ACCEPT"
	ActionCounter    DecisionAction = "COUNTER"
	ActionWalkAway   DecisionAction = "WALK_AWAY"
	ActionEscalate   DecisionAction = "ESCALATE"
	ActionAskClarify DecisionAction = "ASK_CLARIFY"
)

// PaymentTerms is a parsed payment-terms descriptor. Label holds the raw
// text ("Net 30", "Net 45", ...); Days is set when the extractor already
// resolved a day count.
type PaymentTerms struct {
	Label string `json:"label"`
	Days  *int   `json:"days,omitempty"`
}

// Offer is an immutable snapshot of one negotiation position, produced by
// the chat-side extractor. Nil fields mean the vendor's message did not
// state that parameter.
type Offer struct {
	DealID        uuid.UUID              `json:"deal_id"`
	VendorID      uuid.UUID              `json:"vendor_id"`
	TotalPrice    *float64               `json:"total_price,omitempty"`
	PaymentTerms  *PaymentTerms          `json:"payment_terms,omitempty"`
	DeliveryWeeks *int                   `json:"delivery_weeks,omitempty"`
	WarrantyMonth *int                   `json:"warranty_months,omitempty"`
	QualityNotes  *string                `json:"quality_notes,omitempty"`
	Round         int                    `json:"round"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ReceivedAt    time.Time              `json:"received_at"`
}

// PriceParameterConfig configures price utility. Anchor is the opening
// position; Target is the 100%-utility point; MaxAcceptable is the
// 0%-utility point; Step is the concession size for counter offers.
type PriceParameterConfig struct {
	Anchor        float64 `json:"anchor"`
	Target        float64 `json:"target"`
	MaxAcceptable float64 `json:"max_acceptable"`
	Step          float64 `json:"step"`
	Weight        float64 `json:"weight"`
}

// PaymentTermsConfig configures payment-terms utility. Utility maps the
// standard labels ("Net 30", "Net 60", "Net 90") to their configured
// utilities; Options is the enumerated set presented in counter offers.
type PaymentTermsConfig struct {
	Options []string           `json:"options"`
	Utility map[string]float64 `json:"utility"`
	Weight  float64            `json:"weight"`
}

// Thresholds are the zone boundaries. Invariant (enforced at the
// validation boundary, assumed here): Accept >= Escalate >= WalkAway,
// all in [0,1].
type Thresholds struct {
	Accept   float64 `json:"accept"`
	Escalate float64 `json:"escalate"`
	WalkAway float64 `json:"walkaway"`
}

// NegotiationConfig is the per-deal configuration. Constructed once per
// deal; weights may be amended between rounds but never mid-evaluation.
type NegotiationConfig struct {
	DealID       uuid.UUID            `json:"deal_id"`
	Price        PriceParameterConfig `json:"price"`
	PaymentTerms PaymentTermsConfig   `json:"payment_terms"`
	Thresholds   Thresholds           `json:"thresholds"`
	MaxRounds    int                  `json:"max_rounds"`
}

// CounterOffer is the engine's proposed response position.
type CounterOffer struct {
	TotalPrice   *float64 `json:"total_price,omitempty"`
	PaymentTerms *string  `json:"payment_terms,omitempty"`
}

// Decision is the outcome of evaluating one offer. Never mutated after
// creation.
type Decision struct {
	Action       DecisionAction `json:"action"`
	TotalUtility float64        `json:"total_utility"`
	CounterOffer *CounterOffer  `json:"counter_offer,omitempty"`
	Reasons      []string       `json:"reasons"`
	Round        int            `json:"round"`
	DecidedAt    time.Time      `json:"decided_at"`
}

// ParameterTrace is one parameter's contribution inside an Explainability
// record.
type ParameterTrace struct {
	Parameter string   `json:"parameter"`
	RawValue  *float64 `json:"raw_value,omitempty"`
	Utility   float64  `json:"utility"`
	Weight    float64  `json:"weight"`
	Weighted  float64  `json:"weighted_contribution"`
}

// Explainability reproduces every intermediate value behind a Decision.
// Thresholds and weights are copied verbatim so the trace stays
// reproducible if the live config changes later.
type Explainability struct {
	Traces       []ParameterTrace   `json:"traces"`
	TotalUtility float64            `json:"total_utility"`
	Thresholds   Thresholds         `json:"thresholds"`
	Weights      map[string]float64 `json:"weights"`
	ComputedAt   time.Time          `json:"computed_at"`
}

type EvaluateRequest struct {
	Config  NegotiationConfig `json:"config" binding:"required"`
	Offer   Offer             `json:"offer" binding:"required"`
	Explain bool              `json:"explain"`
}

type EvaluateResponse struct {
	Decision       Decision        `json:"decision"`
	Explainability *Explainability `json:"explainability,omitempty"`
}
