package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/pkg/models"
)

// MetricsCollector exposes the engine's business metrics on the shared
// Prometheus registry.
type MetricsCollector struct {
	evaluations     *prometheus.CounterVec
	utilityScores   prometheus.Histogram
	profileUpdates  prometheus.Counter
	profileMerges   prometheus.Counter
	weightApplies   prometheus.Counter
	selectionsTotal *prometheus.CounterVec
}

func NewMetricsCollector(logger *logrus.Logger) *MetricsCollector {
	mc := &MetricsCollector{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "negotiation_evaluations_total",
			Help: "Offer evaluations by resulting action",
		}, []string{"action"}),
		utilityScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "negotiation_total_utility",
			Help:    "Distribution of total utility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		profileUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "preference_profile_updates_total",
			Help: "Profile updates from MESO selections",
		}),
		profileMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "preference_profile_merges_total",
			Help: "Cross-deal profile merges",
		}),
		weightApplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weight_applications_total",
			Help: "Preference-driven weight table adjustments",
		}),
		selectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meso_selections_total",
			Help: "MESO selection events by ingestion source",
		}, []string{"source"}),
	}

	for _, collector := range []prometheus.Collector{
		mc.evaluations, mc.utilityScores, mc.profileUpdates,
		mc.profileMerges, mc.weightApplies, mc.selectionsTotal,
	} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register negotiation metric")
			}
		}
	}

	return mc
}

func (mc *MetricsCollector) RecordEvaluation(decision models.Decision) {
	mc.evaluations.WithLabelValues(string(decision.Action)).Inc()
	mc.utilityScores.Observe(decision.TotalUtility)
}

func (mc *MetricsCollector) RecordProfileUpdate(source string) {
	mc.profileUpdates.Inc()
	mc.selectionsTotal.WithLabelValues(source).Inc()
}

func (mc *MetricsCollector) RecordProfileMerge() {
	mc.profileMerges.Inc()
}

func (mc *MetricsCollector) RecordWeightApplication() {
	mc.weightApplies.Inc()
}
