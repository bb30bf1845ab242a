package services

import (
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/internal/database"
)

type Services struct {
	Auth               *AuthService
	Health             *HealthService
	Metrics            *MetricsCollector
	DecisionEngine     *DecisionEngineService
	PreferenceTracker  *PreferenceTrackerService
	PreferenceAnalyzer *PreferenceAnalyzerService
	ProfileMerger      *ProfileMergerService
	ProfileStore       *ProfileStoreService
	SelectionProcessor *SelectionProcessorService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis)
	healthService := NewHealthService(cfg, logger, db)
	metrics := NewMetricsCollector(logger)

	decisionEngine := NewDecisionEngineService(cfg, logger)
	tracker := NewPreferenceTrackerService(cfg, logger)
	analyzer := NewPreferenceAnalyzerService(cfg, logger)
	merger := NewProfileMergerService(cfg, logger)

	profileStore := NewProfileStoreService(db.PG, db.Redis, cfg.Redis.ProfileTTL, logger)
	selectionProcessor := NewSelectionProcessorService(profileStore, tracker, merger, metrics, logger)

	return &Services{
		Auth:               authService,
		Health:             healthService,
		Metrics:            metrics,
		DecisionEngine:     decisionEngine,
		PreferenceTracker:  tracker,
		PreferenceAnalyzer: analyzer,
		ProfileMerger:      merger,
		ProfileStore:       profileStore,
		SelectionProcessor: selectionProcessor,
	}, nil
}
