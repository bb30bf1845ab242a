package services

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// Per-parameter utility functions. Everything here is a pure value
// transformation: no I/O, no mutation, total over its documented domain.
// Degenerate inputs yield sentinel utilities (0), never errors.

var (
	netTermsPattern = regexp.MustCompile(`(?i)net\s*(\d+)`)
	labelFolder     = cases.Fold()
)

// defaultReferenceUtilities backs the 30/60/90-day interpolation scale when
// the deal config does not price a reference label itself.
var defaultReferenceUtilities = map[int]float64{
	30: 1.0,
	60: 0.7,
	90: 0.5,
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PriceUtility scores an offered price against the deal's price parameter.
// Target, not anchor, is the 100%-utility point: the anchor is an opening
// position, not an acceptance threshold. Non-positive interpolation span
// (max_acceptable <= target) degrades to a step function.
func PriceUtility(cfg models.PriceParameterConfig, price float64) float64 {
	if price <= cfg.Target {
		return 1.0
	}
	span := cfg.MaxAcceptable - cfg.Target
	if span <= 0 {
		return 0.0
	}
	if price >= cfg.MaxAcceptable {
		return 0.0
	}
	return clamp01(1.0 - (price-cfg.Target)/span)
}

// TermsUtility scores a payment-terms descriptor. An exact configured label
// wins outright; otherwise the day count is extracted and scored on the
// 30/60/90 interpolation scale. Unparseable or out-of-range day counts are
// unknown/unfavorable, not errors: utility 0.
func TermsUtility(cfg models.PaymentTermsConfig, scale config.TermsScaleConfig, terms *models.PaymentTerms) float64 {
	if terms == nil {
		return 0.0
	}

	if u, ok := lookupLabel(cfg.Utility, terms.Label); ok {
		return clamp01(u)
	}

	days, ok := extractDayCount(terms)
	if !ok || days < scale.MinDays || days > scale.MaxDays {
		return 0.0
	}

	u30 := referenceUtility(cfg, 30)
	u60 := referenceUtility(cfg, 60)
	u90 := referenceUtility(cfg, 90)

	switch {
	case days < 30:
		// Shorter terms are worth more; extrapolate up from the 30-day point.
		u := u30 + float64(30-days)*scale.SlopePerDay
		if u > scale.Cap {
			u = scale.Cap
		}
		return clamp01(u)
	case days == 30:
		return clamp01(u30)
	case days < 60:
		return clamp01(interpolate(30, 60, u30, u60, days))
	case days == 60:
		return clamp01(u60)
	case days < 90:
		return clamp01(interpolate(60, 90, u60, u90, days))
	case days == 90:
		return clamp01(u90)
	default:
		// Very long terms retain nonzero value, hence the floor.
		u := u90 - float64(days-90)*scale.SlopePerDay
		if u < scale.Floor {
			u = scale.Floor
		}
		return clamp01(u)
	}
}

// TotalUtility combines per-parameter utilities into the weighted decision
// signal. Missing offer fields contribute 0: an incomplete offer is
// penalized, not ignored. Weights are assumed pre-normalized by the
// configuration boundary; no normalization happens here.
func TotalUtility(cfg models.NegotiationConfig, scale config.TermsScaleConfig, offer models.Offer) float64 {
	total := 0.0
	if offer.TotalPrice != nil {
		total += PriceUtility(cfg.Price, *offer.TotalPrice) * cfg.Price.Weight
	}
	if offer.PaymentTerms != nil {
		total += TermsUtility(cfg.PaymentTerms, scale, offer.PaymentTerms) * cfg.PaymentTerms.Weight
	}
	return clamp01(total)
}

func interpolate(loDays, hiDays int, loU, hiU float64, days int) float64 {
	ratio := float64(days-loDays) / float64(hiDays-loDays)
	return loU - ratio*(loU-hiU)
}

// referenceUtility resolves one of the 30/60/90-day scale points from the
// deal's utility table, falling back to the canonical defaults.
func referenceUtility(cfg models.PaymentTermsConfig, days int) float64 {
	label := "net " + strconv.Itoa(days)
	for k, v := range cfg.Utility {
		if labelFolder.String(strings.TrimSpace(k)) == label {
			return v
		}
	}
	return defaultReferenceUtilities[days]
}

func lookupLabel(table map[string]float64, label string) (float64, bool) {
	folded := labelFolder.String(strings.TrimSpace(label))
	for k, v := range table {
		if labelFolder.String(strings.TrimSpace(k)) == folded {
			return v, true
		}
	}
	return 0, false
}

// extractDayCount resolves a day count from the parsed descriptor, or from
// a "Net X" label when the extractor left Days unset.
func extractDayCount(terms *models.PaymentTerms) (int, bool) {
	if terms.Days != nil {
		return *terms.Days, true
	}
	m := netTermsPattern.FindStringSubmatch(terms.Label)
	if m == nil {
		return 0, false
	}
	days, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return days, true
}
