package services

import (
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Negotiation: config.NegotiationConfig{
			Thresholds: config.ThresholdDefaults{
				Accept:   0.70,
				Escalate: 0.50,
				WalkAway: 0.30,
			},
			Terms: config.TermsScaleConfig{
				MinDays:     1,
				MaxDays:     120,
				SlopePerDay: 0.01,
				Cap:         1.0,
				Floor:       0.1,
			},
			Learning: config.LearningConfig{
				DecayFactor:        0.9,
				BlendRate:          0.1,
				BaseConfidence:     0.3,
				ConfidencePerRound: 0.15,
				MaxConfidence:      0.9,
				MaxMergeConfidence: 0.95,
				MinConfidence:      0.3,
				AdjustmentStrength: 0.3,
				HistoryLimit:       20,
				MergeRecencyFactor: 0.9,
			},
		},
	}
}

func testDealConfig() models.NegotiationConfig {
	return models.NegotiationConfig{
		Price: models.PriceParameterConfig{
			Anchor:        90,
			Target:        100,
			MaxAcceptable: 120,
			Step:          5,
			Weight:        0.6,
		},
		PaymentTerms: models.PaymentTermsConfig{
			Options: []string{"Net 30", "Net 60", "Net 90"},
			Utility: map[string]float64{
				"Net 30": 1.0,
				"Net 60": 0.7,
				"Net 90": 0.5,
			},
			Weight: 0.4,
		},
		Thresholds: models.Thresholds{
			Accept:   0.70,
			Escalate: 0.50,
			WalkAway: 0.30,
		},
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
