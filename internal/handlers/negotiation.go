package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/messaging"
	"github.com/procurechat/dealengine/internal/services"
	"github.com/procurechat/dealengine/internal/validation"
	"github.com/procurechat/dealengine/pkg/models"
)

type NegotiationHandler struct {
	logger          *logrus.Logger
	engine          *services.DecisionEngineService
	metrics         *services.MetricsCollector
	schemas         *validation.SchemaValidator
	configValidator *validation.ConfigValidator
	bus             *messaging.MessageBus
}

func NewNegotiationHandler(
	logger *logrus.Logger,
	engine *services.DecisionEngineService,
	metrics *services.MetricsCollector,
	schemas *validation.SchemaValidator,
	bus *messaging.MessageBus,
) *NegotiationHandler {
	return &NegotiationHandler{
		logger:          logger,
		engine:          engine,
		metrics:         metrics,
		schemas:         schemas,
		configValidator: validation.NewConfigValidator(),
		bus:             bus,
	}
}

// Evaluate scores one offer against its deal configuration and returns the
// decision, with the full explainability trace when requested.
func (h *NegotiationHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to bind evaluate request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	if result := h.schemas.ValidateOffer(req.Offer); !result.Valid {
		h.logger.WithField("errors", result.Errors).Warn("Offer failed schema validation")
		c.JSON(http.StatusBadRequest, result.ToAPIError())
		return
	}

	if err := h.configValidator.ValidateNegotiationConfig(req.Config); err != nil {
		h.logger.WithError(err).Warn("Negotiation config failed validation")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_CONFIG",
				"message": err.Error(),
			},
		})
		return
	}

	decision := h.engine.Evaluate(req.Config, req.Offer)
	h.metrics.RecordEvaluation(decision)

	if h.bus != nil {
		err := h.bus.PublishDecision(c.Request.Context(), messaging.DecisionMessage{
			DealID:   req.Offer.DealID,
			VendorID: req.Offer.VendorID,
			Round:    req.Offer.Round,
			Decision: decision,
		})
		if err != nil {
			// The caller still gets the decision; downstream consumers miss it
			h.logger.WithError(err).Warn("Failed to publish decision event")
		}
	}

	response := models.EvaluateResponse{Decision: decision}
	if req.Explain {
		explainability := h.engine.ComputeExplainability(req.Config, req.Offer)
		response.Explainability = &explainability
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}
