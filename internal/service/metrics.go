package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vingo_review_mutations_total",
			Help: "Successful review mutations by operation (create, update, delete).",
		},
		[]string{"operation"},
	)

	reviewRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vingo_review_rejections_total",
			Help: "Review writes refused by business rules, by reason.",
		},
		[]string{"reason"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vingo_review_side_effect_failures_total",
			Help: "Best-effort steps that failed after a committed write (recompute, enrich, publish, cache).",
		},
		[]string{"step"},
	)

	ratingRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vingo_item_rating_recomputes_total",
		Help: "Item rating aggregates written.",
	})
)
