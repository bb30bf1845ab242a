package services

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

// ProfileMergerService combines several per-deal profiles into one
// vendor-level profile. Callers pre-filter to a single vendor; the merger
// assumes that and only reads the first profile's vendor id.
type ProfileMergerService struct {
	learning config.LearningConfig
	logger   *logrus.Logger
}

func NewProfileMergerService(cfg *config.Config, logger *logrus.Logger) *ProfileMergerService {
	return &ProfileMergerService{
		learning: cfg.Negotiation.Learning,
		logger:   logger,
	}
}

// MergeProfiles produces a recency- and confidence-weighted vendor-level
// profile. Nil for empty input; a fresh empty profile when no input
// carries any weight (all zero confidence), so callers never divide by
// zero. Input order matters: later elements are the most recent deals and
// weigh the most.
func (s *ProfileMergerService) MergeProfiles(profiles []models.VendorPreferenceProfile) *models.VendorPreferenceProfile {
	if len(profiles) == 0 {
		return nil
	}

	n := len(profiles)
	vendorID := profiles[0].VendorID

	weights := make([]float64, n)
	totalWeight := 0.0
	for i, p := range profiles {
		weights[i] = math.Pow(s.learning.MergeRecencyFactor, float64(n-1-i)) * p.Confidence
		totalWeight += weights[i]
	}

	if totalWeight == 0 {
		fresh := NewEmptyProfile(vendorID, uuid.Nil)
		return &fresh
	}

	merged := NewEmptyProfile(vendorID, uuid.Nil)

	values := make([]float64, n)
	for _, dim := range models.PreferenceDimensions {
		for i, p := range profiles {
			values[i] = p.Scores[dim]
		}
		merged.Scores[dim] = clamp01(stat.Mean(values, weights))
	}

	rounds := 0
	var history []models.SelectionRecord
	for _, p := range profiles {
		rounds += p.Rounds
		history = append(history, p.History...)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	if limit := s.learning.HistoryLimit; limit > 0 && len(history) > limit {
		history = history[:limit]
	}

	merged.Rounds = rounds
	merged.History = history
	merged.Confidence = math.Min(s.learning.MaxMergeConfidence, totalWeight/float64(n))
	merged.Primary, merged.Secondary = rankScores(merged.Scores)
	merged.UpdatedAt = time.Now().UTC()

	s.logger.WithFields(logrus.Fields{
		"vendor_id":  vendorID,
		"profiles":   n,
		"confidence": merged.Confidence,
	}).Debug("Merged per-deal profiles into vendor-level profile")

	return &merged
}
