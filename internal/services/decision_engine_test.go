package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechat/dealengine/pkg/models"
)

func newTestEngine(t *testing.T) *DecisionEngineService {
	t.Helper()
	return NewDecisionEngineService(testConfig(), testLogger())
}

func TestEvaluate_Counter(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	offer := models.Offer{
		TotalPrice:   floatPtr(110),
		PaymentTerms: &models.PaymentTerms{Label: "Net 45"},
		Round:        2,
	}

	decision := engine.Evaluate(cfg, offer)

	assert.Equal(t, models.ActionCounter, decision.Action)
	assert.InDelta(t, 0.64, decision.TotalUtility, 1e-9)
	assert.Equal(t, 2, decision.Round)
	assert.NotEmpty(t, decision.Reasons)

	require.NotNil(t, decision.CounterOffer)
	require.NotNil(t, decision.CounterOffer.TotalPrice)
	assert.InDelta(t, 105, *decision.CounterOffer.TotalPrice, 1e-9)
	require.NotNil(t, decision.CounterOffer.PaymentTerms)
	assert.Equal(t, "Net 30", *decision.CounterOffer.PaymentTerms)
}

func TestEvaluate_Accept(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	offer := models.Offer{
		TotalPrice:   floatPtr(98),
		PaymentTerms: &models.PaymentTerms{Label: "Net 30"},
		Round:        3,
	}

	decision := engine.Evaluate(cfg, offer)

	assert.Equal(t, models.ActionAccept, decision.Action)
	assert.InDelta(t, 1.0, decision.TotalUtility, 1e-9)
	assert.Nil(t, decision.CounterOffer)
}

func TestEvaluate_WalkAway(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	offer := models.Offer{
		TotalPrice:   floatPtr(140),
		PaymentTerms: &models.PaymentTerms{Label: "Net 120"},
		Round:        1,
	}

	decision := engine.Evaluate(cfg, offer)

	// 0*0.6 + 0.2*0.4
	assert.Equal(t, models.ActionWalkAway, decision.Action)
	assert.InDelta(t, 0.08, decision.TotalUtility, 1e-9)
	assert.Nil(t, decision.CounterOffer)
}

func TestEvaluate_Escalate(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	// 0.25*0.6 + 0.5*0.4 = 0.35: above walk-away, below escalate.
	offer := models.Offer{
		TotalPrice:   floatPtr(115),
		PaymentTerms: &models.PaymentTerms{Label: "Net 90"},
		Round:        1,
	}

	decision := engine.Evaluate(cfg, offer)

	assert.Equal(t, models.ActionEscalate, decision.Action)
	assert.InDelta(t, 0.35, decision.TotalUtility, 1e-9)
}

func TestEvaluate_ZoneBoundaries(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	// Full weight on price so the offered price maps straight onto utility.
	cfg.Price.Weight = 1.0
	cfg.PaymentTerms.Weight = 0

	cases := []struct {
		name     string
		price    float64
		expected models.DecisionAction
	}{
		{"at accept boundary", 106, models.ActionAccept},       // u = 0.70
		{"just below accept", 106.2, models.ActionCounter},     // u = 0.69
		{"at escalate boundary", 110, models.ActionCounter},    // u = 0.50 counters
		{"just below escalate", 110.2, models.ActionEscalate},  // u = 0.49
		{"at walk-away boundary", 114, models.ActionEscalate},  // u = 0.30 escalates
		{"below walk-away", 114.2, models.ActionWalkAway},      // u = 0.29
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offer := models.Offer{TotalPrice: floatPtr(tc.price), Round: 1}
			decision := engine.Evaluate(cfg, offer)
			assert.Equal(t, tc.expected, decision.Action, "utility %v", decision.TotalUtility)
		})
	}
}

func TestEvaluate_AskClarify(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	decision := engine.Evaluate(cfg, models.Offer{Round: 1})

	assert.Equal(t, models.ActionAskClarify, decision.Action)
	assert.Equal(t, 0.0, decision.TotalUtility)
	assert.Nil(t, decision.CounterOffer)
	assert.NotEmpty(t, decision.Reasons)
}

func TestEvaluate_MaxRoundsEscalates(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()
	cfg.MaxRounds = 3

	offer := models.Offer{
		TotalPrice:   floatPtr(110),
		PaymentTerms: &models.PaymentTerms{Label: "Net 45"},
		Round:        3,
	}

	decision := engine.Evaluate(cfg, offer)

	// Would counter at 0.64, but the round budget is spent.
	assert.Equal(t, models.ActionEscalate, decision.Action)
	assert.Nil(t, decision.CounterOffer)
}

func TestEvaluate_MaxRoundsDoesNotAffectAccept(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()
	cfg.MaxRounds = 1

	offer := models.Offer{
		TotalPrice:   floatPtr(95),
		PaymentTerms: &models.PaymentTerms{Label: "Net 30"},
		Round:        5,
	}

	decision := engine.Evaluate(cfg, offer)
	assert.Equal(t, models.ActionAccept, decision.Action)
}

func TestEvaluate_CounterNeverConcedesPastTarget(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()
	cfg.Price.Step = 50

	offer := models.Offer{
		TotalPrice:   floatPtr(112),
		PaymentTerms: &models.PaymentTerms{Label: "Net 60"},
		Round:        1,
	}

	decision := engine.Evaluate(cfg, offer)
	require.Equal(t, models.ActionCounter, decision.Action)
	require.NotNil(t, decision.CounterOffer)
	require.NotNil(t, decision.CounterOffer.TotalPrice)
	assert.Equal(t, cfg.Price.Target, *decision.CounterOffer.TotalPrice)
}

func TestEvaluate_MissingFieldsAreExplained(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	offer := models.Offer{
		PaymentTerms: &models.PaymentTerms{Label: "Net 30"},
		Round:        1,
	}

	decision := engine.Evaluate(cfg, offer)

	found := false
	for _, reason := range decision.Reasons {
		if reason == "no price stated; price contributed 0 utility" {
			found = true
		}
	}
	assert.True(t, found, "missing price should be called out in reasons: %v", decision.Reasons)
}

func TestComputeExplainability(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	offer := models.Offer{
		TotalPrice:   floatPtr(110),
		PaymentTerms: &models.PaymentTerms{Label: "Net 45"},
		Round:        2,
	}

	ex := engine.ComputeExplainability(cfg, offer)

	require.Len(t, ex.Traces, 2)

	price := ex.Traces[0]
	assert.Equal(t, "total_price", price.Parameter)
	assert.InDelta(t, 0.5, price.Utility, 1e-9)
	assert.InDelta(t, 0.6, price.Weight, 1e-9)
	assert.InDelta(t, 0.3, price.Weighted, 1e-9)

	terms := ex.Traces[1]
	assert.Equal(t, "payment_terms", terms.Parameter)
	assert.InDelta(t, 0.85, terms.Utility, 1e-9)
	assert.InDelta(t, 0.4, terms.Weight, 1e-9)
	assert.InDelta(t, 0.34, terms.Weighted, 1e-9)
	require.NotNil(t, terms.RawValue)
	assert.Equal(t, 45.0, *terms.RawValue)

	// The trace must reproduce the decision's number and snapshot the
	// configuration it was computed under.
	assert.InDelta(t, 0.64, ex.TotalUtility, 1e-9)
	assert.InDelta(t, price.Weighted+terms.Weighted, ex.TotalUtility, 1e-9)
	assert.Equal(t, cfg.Thresholds, ex.Thresholds)
	assert.Equal(t, cfg.Price.Weight, ex.Weights["price"])
	assert.Equal(t, cfg.PaymentTerms.Weight, ex.Weights["payment_terms"])
	assert.False(t, ex.ComputedAt.IsZero())
}

func TestComputeExplainability_MissingFields(t *testing.T) {
	engine := newTestEngine(t)
	cfg := testDealConfig()

	ex := engine.ComputeExplainability(cfg, models.Offer{TotalPrice: floatPtr(105)})

	require.Len(t, ex.Traces, 2)
	assert.Nil(t, ex.Traces[1].RawValue)
	assert.Equal(t, 0.0, ex.Traces[1].Utility)
	assert.InDelta(t, 0.75*0.6, ex.TotalUtility, 1e-9)
}
