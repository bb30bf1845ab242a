package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/services"
	"github.com/procurechat/dealengine/internal/validation"
	"github.com/procurechat/dealengine/pkg/models"
)

type PreferenceHandler struct {
	logger    *logrus.Logger
	processor *services.SelectionProcessorService
	analyzer  *services.PreferenceAnalyzerService
	store     *services.ProfileStoreService
	metrics   *services.MetricsCollector
	schemas   *validation.SchemaValidator
}

func NewPreferenceHandler(
	logger *logrus.Logger,
	processor *services.SelectionProcessorService,
	analyzer *services.PreferenceAnalyzerService,
	store *services.ProfileStoreService,
	metrics *services.MetricsCollector,
	schemas *validation.SchemaValidator,
) *PreferenceHandler {
	return &PreferenceHandler{
		logger:    logger,
		processor: processor,
		analyzer:  analyzer,
		store:     store,
		metrics:   metrics,
		schemas:   schemas,
	}
}

// RecordSelection folds one MESO choice into the vendor's per-deal profile.
// Rounds must advance strictly; a stale round is a conflict, not a retry.
func (h *PreferenceHandler) RecordSelection(c *gin.Context) {
	vendorID, dealID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to bind selection request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	req.Selection.VendorID = vendorID
	req.Selection.DealID = dealID

	if result := h.schemas.ValidateMesoSelection(req.Selection); !result.Valid {
		h.logger.WithField("errors", result.Errors).Warn("Selection failed schema validation")
		c.JSON(http.StatusBadRequest, result.ToAPIError())
		return
	}

	profile, err := h.processor.ProcessSelection(c.Request.Context(), req.Selection, req.Option, "api")
	if err != nil {
		if strings.Contains(err.Error(), "is not after profile round") {
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"code":    "STALE_ROUND",
					"message": err.Error(),
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to process selection")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "SELECTION_PROCESSING_FAILED",
				"message": "Failed to process selection",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    profile,
		"message": "Selection recorded",
	})
}

// GetProfile returns the per-deal profile, or 404 before the first selection.
func (h *PreferenceHandler) GetProfile(c *gin.Context) {
	vendorID, dealID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	profile, err := h.store.Get(c.Request.Context(), vendorID, dealID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "PROFILE_LOAD_FAILED",
				"message": "Failed to load profile",
			},
		})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "PROFILE_NOT_FOUND",
				"message": "No preference profile exists for this vendor and deal",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// GetAdjustments returns the analyzer's current weight-change
// recommendations. An existing but low-confidence profile yields an empty
// list, not an error.
func (h *PreferenceHandler) GetAdjustments(c *gin.Context) {
	vendorID, dealID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	profile, err := h.store.Get(c.Request.Context(), vendorID, dealID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "PROFILE_LOAD_FAILED",
				"message": "Failed to load profile",
			},
		})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "PROFILE_NOT_FOUND",
				"message": "No preference profile exists for this vendor and deal",
			},
		})
		return
	}

	adjustments := h.analyzer.AnalyzePreferences(*profile)
	if adjustments == nil {
		adjustments = []models.PreferenceAdjustment{}
	}

	c.JSON(http.StatusOK, gin.H{"data": adjustments})
}

// ApplyWeights folds the learned preferences into a caller-supplied weight
// table. A missing profile is a pass-through, not a failure: the caller gets
// its own weights back.
func (h *PreferenceHandler) ApplyWeights(c *gin.Context) {
	vendorID, dealID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	var req models.ApplyWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to bind weights request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	if result := h.schemas.ValidateWeightTable(req.BaseWeights); !result.Valid {
		h.logger.WithField("errors", result.Errors).Warn("Weight table failed schema validation")
		c.JSON(http.StatusBadRequest, result.ToAPIError())
		return
	}

	profile, err := h.store.Get(c.Request.Context(), vendorID, dealID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "PROFILE_LOAD_FAILED",
				"message": "Failed to load profile",
			},
		})
		return
	}

	strength := 0.0
	if req.AdjustmentStrength != nil {
		strength = *req.AdjustmentStrength
	}

	weights := h.analyzer.ApplyPreferencesToWeights(req.BaseWeights, profile, strength)
	h.metrics.RecordWeightApplication()

	response := models.ApplyWeightsResponse{
		Weights:     weights,
		Adjustments: []models.PreferenceAdjustment{},
	}
	if profile != nil {
		if adjustments := h.analyzer.AnalyzePreferences(*profile); adjustments != nil {
			response.Adjustments = adjustments
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// MergeVendor merges every per-deal profile for a vendor into a vendor-level
// view. The result is computed on demand and never persisted.
func (h *PreferenceHandler) MergeVendor(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("vendorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_VENDOR_ID",
				"message": "vendorId must be a valid UUID",
			},
		})
		return
	}

	merged, err := h.processor.MergeVendorProfiles(c.Request.Context(), vendorID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to merge vendor profiles")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "PROFILE_MERGE_FAILED",
				"message": "Failed to merge vendor profiles",
			},
		})
		return
	}
	if merged == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "PROFILE_NOT_FOUND",
				"message": "No preference profiles exist for this vendor",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": merged})
}

func (h *PreferenceHandler) pathIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	vendorID, err := uuid.Parse(c.Param("vendorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_VENDOR_ID",
				"message": "vendorId must be a valid UUID",
			},
		})
		return uuid.Nil, uuid.Nil, false
	}

	dealID, err := uuid.Parse(c.Param("dealId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_DEAL_ID",
				"message": "dealId must be a valid UUID",
			},
		})
		return uuid.Nil, uuid.Nil, false
	}

	return vendorID, dealID, true
}
