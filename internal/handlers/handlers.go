package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/messaging"
	"github.com/procurechat/dealengine/internal/services"
	"github.com/procurechat/dealengine/internal/validation"
)

type Handlers struct {
	Health      *HealthHandler
	Negotiation *NegotiationHandler
	Preference  *PreferenceHandler
	Auth        *AuthHandler
}

func New(logger *logrus.Logger, services *services.Services, schemas *validation.SchemaValidator, bus *messaging.MessageBus) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(logger, services.Health),
		Negotiation: NewNegotiationHandler(logger, services.DecisionEngine, services.Metrics, schemas, bus),
		Preference: NewPreferenceHandler(
			logger,
			services.SelectionProcessor,
			services.PreferenceAnalyzer,
			services.ProfileStore,
			services.Metrics,
			schemas,
		),
		Auth: NewAuthHandler(logger, services.Auth),
	}
}
