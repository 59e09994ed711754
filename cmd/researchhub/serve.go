package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/discord"
	"github.com/chris/researchhub/internal/observe"
	"github.com/chris/researchhub/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot, background jobs and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := createLogger()
		defer logger.Sync()

		metrics, shutdownMetrics, err := observe.InitProvider(ctx, version)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(sctx)
		}()

		a, err := newApp(ctx, logger, metrics)
		if err != nil {
			return err
		}
		defer a.Close()
		a.cfg.Watch()
		cur := a.cfg.Current()

		srv := &http.Server{Addr: cur.MetricsAddr, Handler: metricsMux()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		var dm func(string) error
		if cur.Discord.Token != "" {
			bot, err := discord.NewBot(cur.Discord.Token, cur.Discord.OwnerID, a.agent, logger.Named("discord"))
			if err != nil {
				return err
			}
			defer bot.Close()
			dm = bot.SendToOwner
		} else {
			logger.Info("no discord token configured; running background jobs only")
		}

		sched := scheduler.New(scheduler.Config{
			Detect:       cur.Schedule.Detect,
			OARefresh:    cur.Schedule.OARefresh,
			OAPrune:      cur.Schedule.OAPrune,
			Digest:       cur.Schedule.Digest,
			RefreshCount: cur.Schedule.RefreshCount,
			DigestCount:  cur.Schedule.DigestCount,
			WebhookURL:   cur.Discord.WebhookURL,
		}, scheduler.Deps{
			Detector:   a.orch,
			OpenAccess: a.oa,
			Library:    a.db,
			Agent:      a.agent,
			DM:         dm,
		}, logger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		logger.Info("serving", zap.String("metrics", cur.MetricsAddr))
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
