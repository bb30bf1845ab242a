package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// DecisionEngineService turns one (config, offer) pair into a classified
// decision plus an audit trace. Evaluation is synchronous and referentially
// transparent; the service holds only engine-wide scale constants and a
// logger.
type DecisionEngineService struct {
	scale  config.TermsScaleConfig
	logger *logrus.Logger
}

func NewDecisionEngineService(cfg *config.Config, logger *logrus.Logger) *DecisionEngineService {
	return &DecisionEngineService{
		scale:  cfg.Negotiation.Terms,
		logger: logger,
	}
}

// Evaluate scores the offer, classifies it into an action zone and, for
// COUNTER, proposes the next position.
func (s *DecisionEngineService) Evaluate(cfg models.NegotiationConfig, offer models.Offer) models.Decision {
	decision := models.Decision{
		Round:     offer.Round,
		DecidedAt: time.Now().UTC(),
	}

	if offer.TotalPrice == nil && offer.PaymentTerms == nil {
		decision.Action = models.ActionAskClarify
		decision.Reasons = []string{
			"offer states neither a price nor payment terms; asking the vendor to clarify instead of scoring an empty position",
		}
		return decision
	}

	var reasons []string
	if offer.TotalPrice == nil {
		reasons = append(reasons, "no price stated; price contributed 0 utility")
	}
	if offer.PaymentTerms == nil {
		reasons = append(reasons, "no payment terms stated; terms contributed 0 utility")
	}

	total := TotalUtility(cfg, s.scale, offer)
	action, zoneReason := classifyZone(total, cfg.Thresholds)
	reasons = append(reasons, zoneReason)

	if action == models.ActionCounter && cfg.MaxRounds > 0 && offer.Round >= cfg.MaxRounds {
		action = models.ActionEscalate
		reasons = append(reasons, fmt.Sprintf(
			"round %d reached the configured maximum of %d; escalating instead of countering",
			offer.Round, cfg.MaxRounds))
	}

	decision.Action = action
	decision.TotalUtility = total
	decision.Reasons = reasons

	if action == models.ActionCounter {
		decision.CounterOffer = s.buildCounterOffer(cfg, offer)
		if decision.CounterOffer != nil && decision.CounterOffer.TotalPrice != nil {
			decision.Reasons = append(decision.Reasons, fmt.Sprintf(
				"countering at %.2f, one concession step from the offered position toward target %.2f",
				*decision.CounterOffer.TotalPrice, cfg.Price.Target))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"deal_id":       offer.DealID,
		"vendor_id":     offer.VendorID,
		"round":         offer.Round,
		"total_utility": total,
		"action":        decision.Action,
	}).Debug("Offer evaluated")

	return decision
}

// ComputeExplainability recomputes every per-parameter utility from the
// supplied config/offer pair rather than reusing cached values, so the
// trace is self-consistent, and snapshots thresholds and weights verbatim
// so it stays reproducible if the live config changes later.
func (s *DecisionEngineService) ComputeExplainability(cfg models.NegotiationConfig, offer models.Offer) models.Explainability {
	traces := make([]models.ParameterTrace, 0, 2)

	priceUtility := 0.0
	if offer.TotalPrice != nil {
		priceUtility = PriceUtility(cfg.Price, *offer.TotalPrice)
	}
	traces = append(traces, models.ParameterTrace{
		Parameter: "total_price",
		RawValue:  offer.TotalPrice,
		Utility:   priceUtility,
		Weight:    cfg.Price.Weight,
		Weighted:  priceUtility * cfg.Price.Weight,
	})

	termsUtility := 0.0
	var termsDays *float64
	if offer.PaymentTerms != nil {
		termsUtility = TermsUtility(cfg.PaymentTerms, s.scale, offer.PaymentTerms)
		if days, ok := extractDayCount(offer.PaymentTerms); ok {
			d := float64(days)
			termsDays = &d
		}
	}
	traces = append(traces, models.ParameterTrace{
		Parameter: "payment_terms",
		RawValue:  termsDays,
		Utility:   termsUtility,
		Weight:    cfg.PaymentTerms.Weight,
		Weighted:  termsUtility * cfg.PaymentTerms.Weight,
	})

	return models.Explainability{
		Traces:       traces,
		TotalUtility: TotalUtility(cfg, s.scale, offer),
		Thresholds:   cfg.Thresholds,
		Weights: map[string]float64{
			"price":         cfg.Price.Weight,
			"payment_terms": cfg.PaymentTerms.Weight,
		},
		ComputedAt: time.Now().UTC(),
	}
}

// classifyZone maps a utility onto exactly one action zone. Order matters:
// accept wins over walk-away, walk-away over escalate, and ties break
// toward the higher-priority zone.
func classifyZone(u float64, t models.Thresholds) (models.DecisionAction, string) {
	switch {
	case u >= t.Accept:
		return models.ActionAccept, fmt.Sprintf(
			"utility %.2f at or above accept threshold %.2f", u, t.Accept)
	case u < t.WalkAway:
		return models.ActionWalkAway, fmt.Sprintf(
			"utility %.2f below walk-away threshold %.2f", u, t.WalkAway)
	case u < t.Escalate:
		return models.ActionEscalate, fmt.Sprintf(
			"utility %.2f below escalate threshold %.2f", u, t.Escalate)
	default:
		return models.ActionCounter, fmt.Sprintf(
			"utility %.2f between escalate threshold %.2f and accept threshold %.2f",
			u, t.Escalate, t.Accept)
	}
}

// buildCounterOffer proposes the next position: one concession step down
// from the vendor's price, never past target, and the best-utility
// configured payment term.
func (s *DecisionEngineService) buildCounterOffer(cfg models.NegotiationConfig, offer models.Offer) *models.CounterOffer {
	counter := &models.CounterOffer{}

	if offer.TotalPrice != nil {
		price := *offer.TotalPrice - cfg.Price.Step
		if price < cfg.Price.Target {
			price = cfg.Price.Target
		}
		counter.TotalPrice = &price
	} else if cfg.Price.Anchor > 0 {
		anchor := cfg.Price.Anchor
		counter.TotalPrice = &anchor
	}

	if best := bestTermsOption(cfg.PaymentTerms); best != "" {
		counter.PaymentTerms = &best
	}

	if counter.TotalPrice == nil && counter.PaymentTerms == nil {
		return nil
	}
	return counter
}

func bestTermsOption(cfg models.PaymentTermsConfig) string {
	best := ""
	bestUtility := -1.0
	for _, option := range cfg.Options {
		u, ok := lookupLabel(cfg.Utility, option)
		if !ok {
			continue
		}
		if u > bestUtility {
			best = option
			bestUtility = u
		}
	}
	return best
}
