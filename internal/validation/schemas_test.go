package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechat/dealengine/pkg/models"
)

func newValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	return sv
}

func TestValidateOffer(t *testing.T) {
	sv := newValidator(t)

	t.Run("valid offer", func(t *testing.T) {
		price := 110.0
		offer := models.Offer{
			DealID:       uuid.New(),
			VendorID:     uuid.New(),
			TotalPrice:   &price,
			PaymentTerms: &models.PaymentTerms{Label: "Net 45"},
			Round:        2,
			ReceivedAt:   time.Now(),
		}
		result := sv.ValidateOffer(offer)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("offer with no negotiable fields is still structurally valid", func(t *testing.T) {
		offer := models.Offer{DealID: uuid.New(), VendorID: uuid.New(), Round: 1}
		result := sv.ValidateOffer(offer)
		assert.True(t, result.Valid)
	})

	t.Run("negative price", func(t *testing.T) {
		result := sv.ValidateOffer(map[string]interface{}{
			"deal_id":     uuid.New().String(),
			"vendor_id":   uuid.New().String(),
			"total_price": -5,
			"round":       1,
		})
		assert.False(t, result.Valid)
	})

	t.Run("missing required fields", func(t *testing.T) {
		result := sv.ValidateOffer(map[string]interface{}{"total_price": 100})
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("payment terms without label", func(t *testing.T) {
		result := sv.ValidateOffer(map[string]interface{}{
			"deal_id":       uuid.New().String(),
			"vendor_id":     uuid.New().String(),
			"payment_terms": map[string]interface{}{"days": 30},
			"round":         1,
		})
		assert.False(t, result.Valid)
	})

	t.Run("day count out of range", func(t *testing.T) {
		result := sv.ValidateOffer(map[string]interface{}{
			"deal_id":       uuid.New().String(),
			"vendor_id":     uuid.New().String(),
			"payment_terms": map[string]interface{}{"label": "custom", "days": 500},
			"round":         1,
		})
		assert.False(t, result.Valid)
	})
}

func TestValidateMesoSelection(t *testing.T) {
	sv := newValidator(t)

	t.Run("valid selection", func(t *testing.T) {
		selection := models.MesoSelection{
			VendorID:            uuid.New(),
			DealID:              uuid.New(),
			Round:               1,
			SelectedOptionID:    "option-a",
			InferredPreferences: map[string]float64{"price": 0.8},
			Timestamp:           time.Now(),
		}
		result := sv.ValidateMesoSelection(selection)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("round zero rejected", func(t *testing.T) {
		result := sv.ValidateMesoSelection(map[string]interface{}{
			"vendor_id":            uuid.New().String(),
			"deal_id":              uuid.New().String(),
			"round":                0,
			"selected_option_id":   "option-a",
			"inferred_preferences": map[string]interface{}{},
		})
		assert.False(t, result.Valid)
	})

	t.Run("preference signal outside unit interval", func(t *testing.T) {
		result := sv.ValidateMesoSelection(map[string]interface{}{
			"vendor_id":            uuid.New().String(),
			"deal_id":              uuid.New().String(),
			"round":                1,
			"selected_option_id":   "option-a",
			"inferred_preferences": map[string]interface{}{"price": 1.4},
		})
		assert.False(t, result.Valid)
	})

	t.Run("empty option id rejected", func(t *testing.T) {
		result := sv.ValidateMesoSelection(map[string]interface{}{
			"vendor_id":            uuid.New().String(),
			"deal_id":              uuid.New().String(),
			"round":                1,
			"selected_option_id":   "",
			"inferred_preferences": map[string]interface{}{},
		})
		assert.False(t, result.Valid)
	})
}

func TestValidateWeightTable(t *testing.T) {
	sv := newValidator(t)

	t.Run("valid table", func(t *testing.T) {
		result := sv.ValidateWeightTable(map[string]int{"price": 40, "payment_terms": 60})
		assert.True(t, result.Valid)
	})

	t.Run("empty table rejected", func(t *testing.T) {
		result := sv.ValidateWeightTable(map[string]int{})
		assert.False(t, result.Valid)
	})

	t.Run("weight above 100 rejected", func(t *testing.T) {
		result := sv.ValidateWeightTable(map[string]int{"price": 140})
		assert.False(t, result.Valid)
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		result := sv.ValidateWeightTable(map[string]int{"price": -1})
		assert.False(t, result.Valid)
	})
}

func TestValidationResult_ToAPIError(t *testing.T) {
	sv := newValidator(t)

	result := sv.ValidateOffer(map[string]interface{}{"total_price": -5})
	require.False(t, result.Valid)

	apiError := result.ToAPIError()
	require.NotNil(t, apiError)

	errObj, ok := apiError["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.NotNil(t, errObj["details"])

	valid := &ValidationResult{Valid: true}
	assert.Nil(t, valid.ToAPIError())
}
