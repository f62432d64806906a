package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track accepted operations
var (
	AuctionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_auctions_created_total",
		Help: "Total number of auctions created",
	})

	BidsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_bids_accepted_total",
		Help: "Total number of bids accepted",
	})

	AuctionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_auctions_closed_total",
		Help: "Total number of auctions closed",
	})

	Transfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_transfers_total",
			Help: "Total number of committed ledger transfers by kind",
		},
		[]string{"kind"}, // refund, escrow, item, settlement
	)
)

// Performance metrics - Track unit of work latency
var (
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auction_operation_duration_seconds",
			Help:    "Time taken to run a unit of work",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Event delivery metrics - Track the background event queue
var (
	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_event_queue_depth",
		Help: "Events waiting to be delivered to sinks",
	})
)

// Settlement metrics - Track closes that left funds in custody
var (
	SettlementCurrencySkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_settlement_currency_skipped_total",
		Help: "Closes where the currency holder could not cover the winning price",
	})
)

// Error metrics - Track failures
var (
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_rejections_total",
			Help: "Total number of rejected operations by operation and error kind",
		},
		[]string{"operation", "kind"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_errors_total",
			Help: "Total number of internal errors by component",
		},
		[]string{"component"},
	)
)
