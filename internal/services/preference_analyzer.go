package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// dominanceFloor is the score a dimension must exceed before the analyzer
// recommends pushing weight toward it.
const dominanceFloor = 0.7

// pushMagnitudes are the per-dimension positive adjustments. Quality is
// deliberately absent: quality weighting is contractual, not a negotiation
// lever to be traded.
var pushMagnitudes = map[models.PreferenceDimension]float64{
	models.DimensionPrice:        0.15,
	models.DimensionPaymentTerms: 0.15,
	models.DimensionDelivery:     0.12,
	models.DimensionWarranty:     0.10,
}

// weightKeyAliases maps each canonical dimension to the keys it may appear
// under in a caller's weight table. The first present key receives the
// adjustment.
var weightKeyAliases = map[models.PreferenceDimension][]string{
	models.DimensionPrice:        {"price", "total_price", "totalPrice"},
	models.DimensionPaymentTerms: {"payment_terms", "paymentTerms", "terms"},
	models.DimensionDelivery:     {"delivery", "delivery_date"},
	models.DimensionWarranty:     {"warranty", "warranty_months"},
	models.DimensionQuality:      {"quality", "quality_score"},
}

// PreferenceAnalyzerService reads a profile and emits ranked weight
// adjustments, and applies them onto base weight tables under the
// sum-to-100 invariant.
type PreferenceAnalyzerService struct {
	learning config.LearningConfig
	logger   *logrus.Logger
}

func NewPreferenceAnalyzerService(cfg *config.Config, logger *logrus.Logger) *PreferenceAnalyzerService {
	return &PreferenceAnalyzerService{
		learning: cfg.Negotiation.Learning,
		logger:   logger,
	}
}

// AnalyzePreferences converts a profile into weight-adjustment
// recommendations. A profile below the confidence floor yields none:
// insufficient evidence is a sentinel, not an error. Price and payment
// terms trade against each other, so a strong signal on one also emits a
// compensating negative adjustment on the other.
func (s *PreferenceAnalyzerService) AnalyzePreferences(profile models.VendorPreferenceProfile) []models.PreferenceAdjustment {
	if profile.Confidence < s.learning.MinConfidence {
		return nil
	}

	var adjustments []models.PreferenceAdjustment
	for _, dim := range models.PreferenceDimensions {
		magnitude, eligible := pushMagnitudes[dim]
		if !eligible || profile.Scores[dim] <= dominanceFloor {
			continue
		}

		adjustments = append(adjustments, models.PreferenceAdjustment{
			Dimension:  dim,
			Adjustment: magnitude * profile.Confidence * 0.9,
			Confidence: profile.Confidence,
			Reason: fmt.Sprintf("vendor selections consistently emphasize %s (score %.2f)",
				dim, profile.Scores[dim]),
		})

		switch dim {
		case models.DimensionPrice:
			adjustments = append(adjustments, models.PreferenceAdjustment{
				Dimension:  models.DimensionPaymentTerms,
				Adjustment: -0.10 * profile.Confidence * 0.7,
				Confidence: profile.Confidence,
				Reason:     "compensating for the price emphasis: payment terms can be traded against price",
			})
		case models.DimensionPaymentTerms:
			adjustments = append(adjustments, models.PreferenceAdjustment{
				Dimension:  models.DimensionPrice,
				Adjustment: -0.08 * profile.Confidence * 0.7,
				Confidence: profile.Confidence,
				Reason:     "compensating for the payment-terms emphasis: price can be traded against terms",
			})
		}
	}

	sort.SliceStable(adjustments, func(i, j int) bool {
		return math.Abs(adjustments[i].Adjustment) > math.Abs(adjustments[j].Adjustment)
	})

	return adjustments
}

// ApplyPreferencesToWeights folds the analyzer's recommendations into a
// base weight table. If the input summed to 100 the output does too,
// modulo integer rounding drift of at most count-1, which is accepted
// rather than corrected further.
func (s *PreferenceAnalyzerService) ApplyPreferencesToWeights(
	baseWeights map[string]int,
	profile *models.VendorPreferenceProfile,
	adjustmentStrength float64,
) map[string]int {
	result := make(map[string]int, len(baseWeights))
	for k, v := range baseWeights {
		result[k] = v
	}

	if profile == nil || profile.Confidence < s.learning.MinConfidence {
		return result
	}
	if adjustmentStrength <= 0 {
		adjustmentStrength = s.learning.AdjustmentStrength
	}

	working := make(map[string]float64, len(result))
	for k, v := range result {
		working[k] = float64(v)
	}

	for _, adj := range s.AnalyzePreferences(*profile) {
		key, ok := resolveWeightKey(working, adj.Dimension)
		if !ok {
			continue
		}
		w := working[key] + adj.Adjustment*adjustmentStrength*100
		if w < 0 {
			w = 0
		}
		if w > 100 {
			w = 100
		}
		working[key] = w
	}

	sum := 0.0
	for _, w := range working {
		sum += w
	}
	if sum == 0 {
		return result
	}
	if sum != 100 {
		for k := range working {
			working[k] = working[k] * 100 / sum
		}
	}

	for k, w := range working {
		result[k] = int(math.Round(w))
	}

	s.logger.WithFields(logrus.Fields{
		"vendor_id": profile.VendorID,
		"deal_id":   profile.DealID,
		"weights":   result,
	}).Debug("Applied preference adjustments to weights")

	return result
}

func resolveWeightKey(weights map[string]float64, dim models.PreferenceDimension) (string, bool) {
	for _, alias := range weightKeyAliases[dim] {
		if _, ok := weights[alias]; ok {
			return alias, true
		}
	}
	return "", false
}
