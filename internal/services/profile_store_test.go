package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechat/dealengine/pkg/models"
)

func profileColumns() []string {
	return []string{
		"vendor_id", "deal_id", "scores", "rounds", "confidence",
		"primary_preference", "secondary_preference", "history", "updated_at",
	}
}

func storedProfile(t *testing.T) (models.VendorPreferenceProfile, []byte, []byte) {
	t.Helper()

	profile := NewEmptyProfile(uuid.New(), uuid.New())
	profile.Scores[models.DimensionPrice] = 0.72
	profile.Rounds = 2
	profile.Confidence = 0.6
	profile.Primary = models.DimensionPrice
	profile.History = []models.SelectionRecord{{
		Round:            1,
		SelectedOptionID: "option-a",
		Timestamp:        time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}}
	profile.UpdatedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	scores, err := json.Marshal(profile.Scores)
	require.NoError(t, err)
	history, err := json.Marshal(profile.History)
	require.NoError(t, err)

	return profile, scores, history
}

func TestProfileStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewProfileStoreService(mock, nil, time.Hour, testLogger())
	profile, scores, history := storedProfile(t)

	mock.ExpectQuery("SELECT vendor_id, deal_id, scores").
		WithArgs(profile.VendorID, profile.DealID).
		WillReturnRows(pgxmock.NewRows(profileColumns()).AddRow(
			profile.VendorID, profile.DealID, scores, profile.Rounds, profile.Confidence,
			string(profile.Primary), nil, history, profile.UpdatedAt,
		))

	got, err := store.Get(context.Background(), profile.VendorID, profile.DealID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, profile.VendorID, got.VendorID)
	assert.Equal(t, profile.DealID, got.DealID)
	assert.InDelta(t, 0.72, got.Scores[models.DimensionPrice], 1e-9)
	assert.Equal(t, 2, got.Rounds)
	assert.Equal(t, models.DimensionPrice, got.Primary)
	assert.Nil(t, got.Secondary)
	require.Len(t, got.History, 1)
	assert.Equal(t, "option-a", got.History[0].SelectedOptionID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewProfileStoreService(mock, nil, time.Hour, testLogger())
	vendorID, dealID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT vendor_id, deal_id, scores").
		WithArgs(vendorID, dealID).
		WillReturnError(pgx.ErrNoRows)

	got, err := store.Get(context.Background(), vendorID, dealID)

	// Absence is an answer, not an error.
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewProfileStoreService(mock, nil, time.Hour, testLogger())
	profile, _, _ := storedProfile(t)
	secondary := models.DimensionPaymentTerms
	profile.Secondary = &secondary

	mock.ExpectExec("INSERT INTO vendor_preference_profiles").
		WithArgs(
			profile.VendorID, profile.DealID, pgxmock.AnyArg(), profile.Rounds,
			profile.Confidence, string(profile.Primary), pgxmock.AnyArg(),
			pgxmock.AnyArg(), profile.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Save(context.Background(), profile)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_ListByVendor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewProfileStoreService(mock, nil, time.Hour, testLogger())
	vendorID := uuid.New()

	first, scores1, history1 := storedProfile(t)
	second, scores2, history2 := storedProfile(t)
	first.VendorID = vendorID
	second.VendorID = vendorID

	mock.ExpectQuery("SELECT vendor_id, deal_id, scores").
		WithArgs(vendorID).
		WillReturnRows(pgxmock.NewRows(profileColumns()).
			AddRow(first.VendorID, first.DealID, scores1, first.Rounds, first.Confidence,
				string(first.Primary), nil, history1, first.UpdatedAt).
			AddRow(second.VendorID, second.DealID, scores2, second.Rounds, second.Confidence,
				string(second.Primary), nil, history2, second.UpdatedAt))

	profiles, err := store.ListByVendor(context.Background(), vendorID)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, first.DealID, profiles[0].DealID)
	assert.Equal(t, second.DealID, profiles[1].DealID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
