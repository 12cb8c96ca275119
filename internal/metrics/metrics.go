package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_bookings_created_total",
		Help: "The total number of bookings created, by flow (manual or payment)",
	}, []string{"flow"})

	StockReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_stock_released_total",
		Help: "The total number of vehicle units returned to stock",
	})

	ReconciliationLineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_reconciliation_line_failures_total",
		Help: "The total number of cart lines that failed during payment reconciliation, by error code",
	}, []string{"code"})

	ReconciliationAmountMismatch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_reconciliation_amount_mismatch_total",
		Help: "Verified payments whose reported amount differs from the sum of booked totals",
	})

	InvoicesAssigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_invoices_assigned_total",
		Help: "The total number of invoice numbers assigned",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_notifications_sent_total",
		Help: "Notifications delivered to a provider, by channel",
	}, []string{"channel"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_notification_failures_total",
		Help: "Notifications that failed and were dropped, by channel",
	}, []string{"channel"})
)
