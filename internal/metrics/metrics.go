package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Poll loop metrics
	PollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_polls_total",
			Help: "Total TV status polls performed",
		},
	)

	PollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_poll_errors_total",
			Help: "TV status polls that failed",
		},
	)

	// Video metrics
	VideosDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_videos_detected_total",
			Help: "Distinct video playbacks detected on the TV",
		},
	)

	SessionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_sessions_recorded_total",
			Help: "Completed watch sessions recorded to the ledger",
		},
	)

	WatchSecondsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvmon_watch_seconds_consumed_total",
			Help: "Watch seconds accumulated per tracking key",
		},
		[]string{"key"},
	)

	// Alert metrics
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvmon_alerts_triggered_total",
			Help: "Watch-time limit alerts triggered",
		},
		[]string{"period"},
	)

	// Metadata metrics
	MetadataCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_metadata_cache_hits_total",
			Help: "Video metadata served from cache",
		},
	)

	MetadataCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_metadata_cache_misses_total",
			Help: "Video metadata fetched from the YouTube API",
		},
	)

	// Classification metrics
	ClassificationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_classification_errors_total",
			Help: "Theme classification calls that failed after retries",
		},
	)

	// Persistence metrics
	PersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvmon_persist_errors_total",
			Help: "Ledger persistence failures (state retained in memory)",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		PollsTotal,
		PollErrors,
		VideosDetected,
		SessionsRecorded,
		WatchSecondsConsumed,
		AlertsTriggered,
		MetadataCacheHits,
		MetadataCacheMisses,
		ClassificationErrors,
		PersistErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// StartListener serves on a pre-created listener, e.g. a systemd
// socket-activated one.
func (s *Server) StartListener(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting metrics server on activated socket")
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
