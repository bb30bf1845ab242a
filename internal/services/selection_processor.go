package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/pkg/models"
)

// SelectionProcessorService is the stateful edge of preference learning:
// it loads (or creates) the per-deal profile, applies one tracker update
// and persists the result. Both the HTTP handler and the Kafka consumer
// feed it.
type SelectionProcessorService struct {
	store   *ProfileStoreService
	tracker *PreferenceTrackerService
	merger  *ProfileMergerService
	metrics *MetricsCollector
	logger  *logrus.Logger
}

func NewSelectionProcessorService(
	store *ProfileStoreService,
	tracker *PreferenceTrackerService,
	merger *ProfileMergerService,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *SelectionProcessorService {
	return &SelectionProcessorService{
		store:   store,
		tracker: tracker,
		merger:  merger,
		metrics: metrics,
		logger:  logger,
	}
}

// ProcessSelection applies one MESO round to the vendor's profile. The
// decay blend is order-sensitive, so rounds that arrive at or behind the
// profile's counter are rejected instead of silently reordered.
func (s *SelectionProcessorService) ProcessSelection(
	ctx context.Context,
	selection models.MesoSelection,
	option models.MesoOption,
	source string,
) (*models.VendorPreferenceProfile, error) {
	profile, err := s.store.Get(ctx, selection.VendorID, selection.DealID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		fresh := NewEmptyProfile(selection.VendorID, selection.DealID)
		profile = &fresh
	}

	if selection.Round <= profile.Rounds {
		return nil, fmt.Errorf("selection round %d is not after profile round %d",
			selection.Round, profile.Rounds)
	}

	updated := s.tracker.UpdateFromSelection(*profile, selection, option, selection.Round)

	if err := s.store.Save(ctx, updated); err != nil {
		return nil, err
	}

	s.metrics.RecordProfileUpdate(source)
	s.logger.WithFields(logrus.Fields{
		"vendor_id":  updated.VendorID,
		"deal_id":    updated.DealID,
		"rounds":     updated.Rounds,
		"confidence": updated.Confidence,
		"primary":    updated.Primary,
		"source":     source,
	}).Info("Preference profile updated")

	return &updated, nil
}

// MergeVendorProfiles loads every per-deal profile for the vendor and
// merges them into a vendor-level profile. The merged profile is returned
// but not persisted; vendor-level storage belongs to the caller.
func (s *SelectionProcessorService) MergeVendorProfiles(
	ctx context.Context,
	vendorID uuid.UUID,
) (*models.VendorPreferenceProfile, error) {
	profiles, err := s.store.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	merged := s.merger.MergeProfiles(profiles)
	if merged != nil {
		s.metrics.RecordProfileMerge()
	}
	return merged, nil
}
