package services

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// secondaryFloor is the score a dimension must exceed to be reported as a
// secondary preference. Anything at or below it is noise around the 0.5
// midpoint, not a distinct signal.
const secondaryFloor = 0.4

// dimensionAliases maps raw parameter names from MESO selection evidence
// onto the five canonical dimensions. The table is fixed and exhaustive;
// unrecognized names are dropped silently at this boundary.
var dimensionAliases = map[string]models.PreferenceDimension{
	"price":            models.DimensionPrice,
	"total_price":      models.DimensionPrice,
	"totalPrice":       models.DimensionPrice,
	"unit_price":       models.DimensionPrice,
	"targetUnitPrice":  models.DimensionPrice,
	"paymentTerms":     models.DimensionPaymentTerms,
	"payment_terms":    models.DimensionPaymentTerms,
	"payment":          models.DimensionPaymentTerms,
	"terms":            models.DimensionPaymentTerms,
	"delivery":         models.DimensionDelivery,
	"delivery_date":    models.DimensionDelivery,
	"deliveryWeeks":    models.DimensionDelivery,
	"lead_time":        models.DimensionDelivery,
	"warranty":         models.DimensionWarranty,
	"warranty_months":  models.DimensionWarranty,
	"warrantyMonths":   models.DimensionWarranty,
	"quality":          models.DimensionQuality,
	"quality_score":    models.DimensionQuality,
	"quality_standard": models.DimensionQuality,
}

// PreferenceTrackerService folds MESO selection evidence into vendor
// preference profiles. Updates are pure: the input profile is never
// mutated, and the caller owns persistence and round ordering.
type PreferenceTrackerService struct {
	learning config.LearningConfig
	logger   *logrus.Logger
}

func NewPreferenceTrackerService(cfg *config.Config, logger *logrus.Logger) *PreferenceTrackerService {
	return &PreferenceTrackerService{
		learning: cfg.Negotiation.Learning,
		logger:   logger,
	}
}

// NewEmptyProfile is the sole profile constructor: all five scores at the
// maximally uncertain 0.5 midpoint, zero confidence.
func NewEmptyProfile(vendorID, dealID uuid.UUID) models.VendorPreferenceProfile {
	scores := make(map[models.PreferenceDimension]float64, len(models.PreferenceDimensions))
	for _, dim := range models.PreferenceDimensions {
		scores[dim] = 0.5
	}
	return models.VendorPreferenceProfile{
		VendorID:  vendorID,
		DealID:    dealID,
		Scores:    scores,
		Primary:   models.DimensionPrice,
		History:   []models.SelectionRecord{},
		UpdatedAt: time.Now().UTC(),
	}
}

// UpdateFromSelection blends one round of selection evidence into the
// profile and returns the new value. New evidence moves each affected
// score by the blend rate (10%); the rest of its position persists, so the
// profile converges toward sustained patterns and resists single-round
// noise. History stays unbounded here; bounding happens at merge time.
func (s *PreferenceTrackerService) UpdateFromSelection(
	profile models.VendorPreferenceProfile,
	selection models.MesoSelection,
	option models.MesoOption,
	round int,
) models.VendorPreferenceProfile {
	updated := cloneProfile(profile)

	timestamp := selection.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	updated.History = append(updated.History, models.SelectionRecord{
		Round:            round,
		SelectedOptionID: selection.SelectedOptionID,
		Emphasis:         append([]string(nil), option.Emphasis...),
		Timestamp:        timestamp,
	})

	// Sorted keys keep the blend deterministic when two aliases of the
	// same dimension appear in one selection.
	rawKeys := make([]string, 0, len(selection.InferredPreferences))
	for raw := range selection.InferredPreferences {
		rawKeys = append(rawKeys, raw)
	}
	sort.Strings(rawKeys)

	for _, raw := range rawKeys {
		dim, ok := dimensionAliases[raw]
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"vendor_id": profile.VendorID,
				"parameter": raw,
			}).Debug("Dropping unrecognized preference parameter")
			continue
		}
		adjustment := selection.InferredPreferences[raw]
		updated.Scores[dim] = clamp01(
			updated.Scores[dim]*s.learning.DecayFactor + adjustment*s.learning.BlendRate)
	}

	updated.Rounds++
	updated.Confidence = confidenceForRounds(updated.Rounds, s.learning)
	updated.Primary, updated.Secondary = rankScores(updated.Scores)
	updated.UpdatedAt = timestamp

	return updated
}

// confidenceForRounds saturates after four rounds and never reaches
// certainty.
func confidenceForRounds(rounds int, learning config.LearningConfig) float64 {
	c := learning.BaseConfidence + float64(rounds)*learning.ConfidencePerRound
	if c > learning.MaxConfidence {
		c = learning.MaxConfidence
	}
	return c
}

// rankScores derives primary and secondary preferences. Ties break by the
// fixed dimension order; a secondary is reported only when its score
// clears the noise floor.
func rankScores(scores map[models.PreferenceDimension]float64) (models.PreferenceDimension, *models.PreferenceDimension) {
	primary := models.PreferenceDimensions[0]
	for _, dim := range models.PreferenceDimensions[1:] {
		if scores[dim] > scores[primary] {
			primary = dim
		}
	}

	var secondary *models.PreferenceDimension
	for _, dim := range models.PreferenceDimensions {
		if dim == primary {
			continue
		}
		if secondary == nil || scores[dim] > scores[*secondary] {
			d := dim
			secondary = &d
		}
	}
	if secondary != nil && scores[*secondary] <= secondaryFloor {
		secondary = nil
	}
	return primary, secondary
}

func cloneProfile(p models.VendorPreferenceProfile) models.VendorPreferenceProfile {
	clone := p
	clone.Scores = make(map[models.PreferenceDimension]float64, len(p.Scores))
	for dim, score := range p.Scores {
		clone.Scores[dim] = score
	}
	clone.History = append([]models.SelectionRecord(nil), p.History...)
	if p.Secondary != nil {
		d := *p.Secondary
		clone.Secondary = &d
	}
	return clone
}
