package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechat/dealengine/pkg/models"
)

func newTestTracker(t *testing.T) *PreferenceTrackerService {
	t.Helper()
	return NewPreferenceTrackerService(testConfig(), testLogger())
}

func testSelection(round int, prefs map[string]float64) models.MesoSelection {
	return models.MesoSelection{
		VendorID:            uuid.New(),
		DealID:              uuid.New(),
		Round:               round,
		SelectedOptionID:    "option-a",
		InferredPreferences: prefs,
		Timestamp:           time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(round) * time.Hour),
	}
}

func TestNewEmptyProfile(t *testing.T) {
	vendorID := uuid.New()
	dealID := uuid.New()

	profile := NewEmptyProfile(vendorID, dealID)

	assert.Equal(t, vendorID, profile.VendorID)
	assert.Equal(t, dealID, profile.DealID)
	assert.Equal(t, 0, profile.Rounds)
	assert.Equal(t, 0.0, profile.Confidence)
	assert.Equal(t, models.DimensionPrice, profile.Primary)
	assert.Empty(t, profile.History)

	require.Len(t, profile.Scores, len(models.PreferenceDimensions))
	for _, dim := range models.PreferenceDimensions {
		assert.Equal(t, 0.5, profile.Scores[dim])
	}
}

func TestUpdateFromSelection_Blend(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	selection := testSelection(1, map[string]float64{"price": 1.0})
	updated := tracker.UpdateFromSelection(profile, selection, models.MesoOption{OptionID: "option-a"}, 1)

	// 0.5*0.9 + 1.0*0.1
	assert.InDelta(t, 0.55, updated.Scores[models.DimensionPrice], 1e-9)
	// Untouched dimensions keep their position.
	assert.Equal(t, 0.5, updated.Scores[models.DimensionDelivery])
	assert.Equal(t, 1, updated.Rounds)
}

func TestUpdateFromSelection_DoesNotMutateInput(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	selection := testSelection(1, map[string]float64{"price": 1.0, "delivery": 0.0})
	_ = tracker.UpdateFromSelection(profile, selection, models.MesoOption{}, 1)

	assert.Equal(t, 0.5, profile.Scores[models.DimensionPrice])
	assert.Equal(t, 0.5, profile.Scores[models.DimensionDelivery])
	assert.Equal(t, 0, profile.Rounds)
	assert.Empty(t, profile.History)
}

func TestUpdateFromSelection_Convergence(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	// Sustained identical evidence converges toward the blend fixed point
	// (adjustment * blend / (1 - decay) = 1.0) without overshooting.
	prev := profile.Scores[models.DimensionPrice]
	for round := 1; round <= 50; round++ {
		selection := testSelection(round, map[string]float64{"price": 1.0})
		profile = tracker.UpdateFromSelection(profile, selection, models.MesoOption{}, round)
		score := profile.Scores[models.DimensionPrice]
		assert.GreaterOrEqual(t, score, prev)
		assert.LessOrEqual(t, score, 1.0)
		prev = score
	}
	assert.InDelta(t, 1.0, profile.Scores[models.DimensionPrice], 0.01)
}

func TestUpdateFromSelection_Confidence(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	expected := []float64{0.45, 0.60, 0.75, 0.90, 0.90, 0.90}
	for round := 1; round <= len(expected); round++ {
		selection := testSelection(round, map[string]float64{"price": 0.8})
		profile = tracker.UpdateFromSelection(profile, selection, models.MesoOption{}, round)
		assert.InDelta(t, expected[round-1], profile.Confidence, 1e-9, "round %d", round)
	}
}

func TestUpdateFromSelection_AliasMapping(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	selection := testSelection(1, map[string]float64{
		"total_price":     1.0,
		"payment_terms":   0.9,
		"lead_time":       0.8,
		"utterly_unknown": 1.0,
	})
	updated := tracker.UpdateFromSelection(profile, selection, models.MesoOption{}, 1)

	assert.InDelta(t, 0.55, updated.Scores[models.DimensionPrice], 1e-9)
	assert.InDelta(t, 0.54, updated.Scores[models.DimensionPaymentTerms], 1e-9)
	assert.InDelta(t, 0.53, updated.Scores[models.DimensionDelivery], 1e-9)
	// The unknown key is dropped, not accumulated anywhere.
	assert.InDelta(t, 0.5, updated.Scores[models.DimensionWarranty], 1e-9)
	assert.InDelta(t, 0.5, updated.Scores[models.DimensionQuality], 1e-9)
}

func TestUpdateFromSelection_History(t *testing.T) {
	tracker := newTestTracker(t)
	profile := NewEmptyProfile(uuid.New(), uuid.New())

	selection := testSelection(1, map[string]float64{"price": 1.0})
	selection.SelectedOptionID = "option-b"
	option := models.MesoOption{OptionID: "option-b", Emphasis: []string{"price", "delivery"}}

	updated := tracker.UpdateFromSelection(profile, selection, option, 1)

	require.Len(t, updated.History, 1)
	record := updated.History[0]
	assert.Equal(t, 1, record.Round)
	assert.Equal(t, "option-b", record.SelectedOptionID)
	assert.Equal(t, []string{"price", "delivery"}, record.Emphasis)
	assert.Equal(t, selection.Timestamp, record.Timestamp)
}

func TestRankScores(t *testing.T) {
	t.Run("clear primary and secondary", func(t *testing.T) {
		primary, secondary := rankScores(map[models.PreferenceDimension]float64{
			models.DimensionPrice:        0.6,
			models.DimensionPaymentTerms: 0.8,
			models.DimensionDelivery:     0.5,
			models.DimensionWarranty:     0.3,
			models.DimensionQuality:      0.2,
		})
		assert.Equal(t, models.DimensionPaymentTerms, primary)
		require.NotNil(t, secondary)
		assert.Equal(t, models.DimensionPrice, *secondary)
	})

	t.Run("secondary below the noise floor is suppressed", func(t *testing.T) {
		primary, secondary := rankScores(map[models.PreferenceDimension]float64{
			models.DimensionPrice:        0.9,
			models.DimensionPaymentTerms: 0.4,
			models.DimensionDelivery:     0.3,
			models.DimensionWarranty:     0.2,
			models.DimensionQuality:      0.1,
		})
		assert.Equal(t, models.DimensionPrice, primary)
		assert.Nil(t, secondary)
	})

	t.Run("ties break by fixed dimension order", func(t *testing.T) {
		primary, secondary := rankScores(map[models.PreferenceDimension]float64{
			models.DimensionPrice:        0.7,
			models.DimensionPaymentTerms: 0.7,
			models.DimensionDelivery:     0.7,
			models.DimensionWarranty:     0.1,
			models.DimensionQuality:      0.1,
		})
		assert.Equal(t, models.DimensionPrice, primary)
		require.NotNil(t, secondary)
		assert.Equal(t, models.DimensionPaymentTerms, *secondary)
	})
}
