package validation

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/procurechat/dealengine/pkg/models"
)

// ConfigValidator is the schema layer for per-deal negotiation
// configuration. The scoring core assumes these invariants hold and does
// not re-validate them, so every config entering an evaluation passes
// through here.
type ConfigValidator struct {
	validate *validator.Validate
}

func NewConfigValidator() *ConfigValidator {
	v := validator.New()
	v.RegisterStructValidation(negotiationConfigRules, models.NegotiationConfig{})
	return &ConfigValidator{validate: v}
}

func (cv *ConfigValidator) ValidateNegotiationConfig(cfg models.NegotiationConfig) error {
	if err := cv.validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("invalid negotiation config: %s failed rule %s", errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("invalid negotiation config: %w", err)
	}
	return nil
}

func negotiationConfigRules(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(models.NegotiationConfig)

	t := cfg.Thresholds
	if t.Accept < 0 || t.Accept > 1 || t.Escalate < 0 || t.Escalate > 1 || t.WalkAway < 0 || t.WalkAway > 1 {
		sl.ReportError(cfg.Thresholds, "Thresholds", "thresholds", "unit_interval", "")
	}
	if !(t.Accept >= t.Escalate && t.Escalate >= t.WalkAway) {
		sl.ReportError(cfg.Thresholds, "Thresholds", "thresholds", "ordered", "")
	}

	if cfg.Price.MaxAcceptable <= cfg.Price.Target {
		sl.ReportError(cfg.Price, "Price", "price", "positive_span", "")
	}
	if cfg.Price.Weight < 0 || cfg.PaymentTerms.Weight < 0 {
		sl.ReportError(cfg.Price, "Price", "price", "nonnegative_weight", "")
	}

	// Weights arrive pre-normalized; the core performs no normalization.
	sum := cfg.Price.Weight + cfg.PaymentTerms.Weight
	if math.Abs(sum-1.0) > 0.001 {
		sl.ReportError(cfg.Price, "Price", "price", "normalized_weights", "")
	}

	for label, u := range cfg.PaymentTerms.Utility {
		if u < 0 || u > 1 {
			sl.ReportError(cfg.PaymentTerms, "PaymentTerms", "payment_terms", "utility_range", label)
		}
	}
}
