// Package metrics содержит счётчики Prometheus для бизнес-событий бота.
// Счётчики регистрируются в глобальном реестре и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesProcessed — обработанные обновления мессенджера.
	UpdatesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profileshop_updates_processed_total",
		Help: "Number of messenger updates processed.",
	})

	// OrdersSubmitted — созданные pending-заказы.
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profileshop_orders_submitted_total",
		Help: "Number of orders submitted for review.",
	})

	// OrdersReviewed — решения администраторов по заказам.
	OrdersReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profileshop_orders_reviewed_total",
		Help: "Number of admin review decisions by outcome.",
	}, []string{"outcome"})

	// ProfilesSold — успешно выданные профили.
	ProfilesSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profileshop_profiles_sold_total",
		Help: "Number of profiles allocated to approved orders.",
	})

	// AppealsFiled — поданные апелляции.
	AppealsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profileshop_appeals_filed_total",
		Help: "Number of appeals filed by buyers.",
	})

	// ReferralsCounted — засчитанные рефералы.
	ReferralsCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profileshop_referrals_counted_total",
		Help: "Number of referrals credited to referrers.",
	})
)
