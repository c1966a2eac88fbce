package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nearscan",
		Subsystem: "indexer",
		Name:      "blocks_processed_total",
		Help:      "Number of block messages fully ingested.",
	})
	latestBlockHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nearscan",
		Subsystem: "indexer",
		Name:      "latest_block_height",
		Help:      "Height of the most recently ingested block.",
	})
	receiptsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nearscan",
		Subsystem: "indexer",
		Name:      "receipts_skipped_total",
		Help:      "Receipts abandoned after the non-strict resolver budget.",
	})
)
