package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenlens_scan_seconds",
		Help:    "Time spent extracting component records for one scan.",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})

	NodesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_nodes_scanned_total",
		Help: "Total number of scene nodes visited during extraction.",
	})

	ComponentsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_components_extracted_total",
		Help: "Total number of top-level component records extracted.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_cache_hits_total",
		Help: "Total number of scans served from the cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_cache_misses_total",
		Help: "Total number of scans that extracted fresh records.",
	})

	CoalescedScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_coalesced_scans_total",
		Help: "Total number of scan calls that joined an in-flight scan.",
	})

	IndexPaths = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokenlens_index_paths",
		Help: "Number of distinct token paths in the usage index.",
	})

	IndexComponents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokenlens_index_components",
		Help: "Number of component records in the usage index.",
	})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokenlens_match_seconds",
		Help:    "Time spent matching one token against scanned records.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	TokenFilesLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokenlens_token_files_loaded_total",
		Help: "Total number of token source files parsed.",
	})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenlens_tool_calls_total",
		Help: "Total number of MCP tool invocations.",
	}, []string{"tool"})
)
