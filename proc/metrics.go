package proc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/leeineian/knott/sys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	xpAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knott_xp_awarded_total",
		Help: "XP granted from messages, before achievement rewards",
	})

	levelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knott_level_ups_total",
		Help: "Level-up transitions",
	})

	achievementsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knott_achievements_awarded_total",
		Help: "Achievements unlocked",
	})

	cooldownSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knott_cooldown_skips_total",
		Help: "Messages that earned nothing because of the cooldown",
	})

	roleGrants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knott_rank_role_grants_total",
		Help: "Rank role grant attempts by result",
	}, []string{"result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knott_leaderboard_cache_lookups_total",
		Help: "Leaderboard cache lookups by result",
	}, []string{"result"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knott_store_errors_total",
		Help: "Failed store operations by operation",
	}, []string{"operation"})

	trackedCooldowns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knott_cooldown_entries",
		Help: "Entries currently held in the cooldown map",
	})
)

// NewMetricsHandler serves the keep-alive probe on / and Prometheus metrics
// on /metrics.
func NewMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func init() {
	sys.OnClientReady(func(ctx context.Context, _ *bot.Client) {
		sys.RegisterDaemon(sys.LogMetrics, func(ctx context.Context) (bool, func(), func()) {
			if sys.GlobalConfig == nil || sys.GlobalConfig.MetricsAddr == "" {
				return false, nil, nil
			}
			return StartMetricsServer(sys.GlobalConfig.MetricsAddr)
		})
	})
}

// StartMetricsServer returns the daemon loop and shutdown hook for the HTTP
// server on addr.
func StartMetricsServer(addr string) (bool, func(), func()) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	run := func() {
		sys.LogMetrics(sys.MsgMetricsListening, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sys.LogMetrics(sys.MsgMetricsServerFail, err)
		}
	}
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return true, run, shutdown
}
