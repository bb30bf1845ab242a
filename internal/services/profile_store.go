package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/pkg/models"
)

// ProfileQuerier is the slice of pgx the store needs; pgxpool.Pool and
// pgxmock both satisfy it.
type ProfileQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ProfileStoreService persists vendor preference profiles in PostgreSQL
// with a Redis read-through cache. The engine core stays pure; all profile
// I/O funnels through here.
type ProfileStoreService struct {
	db     ProfileQuerier
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewProfileStoreService(db ProfileQuerier, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ProfileStoreService {
	return &ProfileStoreService{
		db:     db,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func profileCacheKey(vendorID, dealID uuid.UUID) string {
	return fmt.Sprintf("profile:%s:%s", vendorID, dealID)
}

// Get returns the stored profile, or nil without error when the vendor has
// not entered MESO negotiation for the deal yet.
func (s *ProfileStoreService) Get(ctx context.Context, vendorID, dealID uuid.UUID) (*models.VendorPreferenceProfile, error) {
	if s.redis != nil {
		if cached := s.redis.Get(ctx, profileCacheKey(vendorID, dealID)).Val(); cached != "" {
			var profile models.VendorPreferenceProfile
			if err := json.Unmarshal([]byte(cached), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	query := `
		SELECT vendor_id, deal_id, scores, rounds, confidence,
		       primary_preference, secondary_preference, history, updated_at
		FROM vendor_preference_profiles
		WHERE vendor_id = $1 AND deal_id = $2`

	profile, err := scanProfile(s.db.QueryRow(ctx, query, vendorID, dealID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	s.cache(ctx, profile)
	return profile, nil
}

// Save upserts the profile and refreshes the cache entry.
func (s *ProfileStoreService) Save(ctx context.Context, profile models.VendorPreferenceProfile) error {
	scores, err := json.Marshal(profile.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	history, err := json.Marshal(profile.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	var secondary *string
	if profile.Secondary != nil {
		v := string(*profile.Secondary)
		secondary = &v
	}

	query := `
		INSERT INTO vendor_preference_profiles
			(vendor_id, deal_id, scores, rounds, confidence,
			 primary_preference, secondary_preference, history, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (vendor_id, deal_id) DO UPDATE SET
			scores = EXCLUDED.scores,
			rounds = EXCLUDED.rounds,
			confidence = EXCLUDED.confidence,
			primary_preference = EXCLUDED.primary_preference,
			secondary_preference = EXCLUDED.secondary_preference,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.Exec(ctx, query,
		profile.VendorID, profile.DealID, scores, profile.Rounds, profile.Confidence,
		string(profile.Primary), secondary, history, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.cache(ctx, &profile)
	return nil
}

// ListByVendor returns all per-deal profiles for a vendor, oldest first,
// which is the order the merger's recency weighting expects.
func (s *ProfileStoreService) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.VendorPreferenceProfile, error) {
	query := `
		SELECT vendor_id, deal_id, scores, rounds, confidence,
		       primary_preference, secondary_preference, history, updated_at
		FROM vendor_preference_profiles
		WHERE vendor_id = $1
		ORDER BY updated_at ASC`

	rows, err := s.db.Query(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.VendorPreferenceProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			s.logger.WithError(err).Error("Failed to scan profile row")
			continue
		}
		profiles = append(profiles, *profile)
	}

	return profiles, rows.Err()
}

func (s *ProfileStoreService) cache(ctx context.Context, profile *models.VendorPreferenceProfile) {
	if s.redis == nil || profile == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, profileCacheKey(profile.VendorID, profile.DealID), data, s.ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to cache profile")
	}
}

func scanProfile(row pgx.Row) (*models.VendorPreferenceProfile, error) {
	var profile models.VendorPreferenceProfile
	var scores, history []byte
	var primary string
	var secondary *string

	err := row.Scan(&profile.VendorID, &profile.DealID, &scores, &profile.Rounds,
		&profile.Confidence, &primary, &secondary, &history, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(scores, &profile.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(history, &profile.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	profile.Primary = models.PreferenceDimension(primary)
	if secondary != nil {
		d := models.PreferenceDimension(*secondary)
		profile.Secondary = &d
	}

	return &profile, nil
}
