// Command stream-worker runs the detection engine against the live
// transaction stream: it consumes the input topic, scores and observes
// every record, and republishes results (and, for anomalies, alerts) to
// their own topics.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/configs"
	"github.com/enterprise/anomaly-engine/internal/audit"
	"github.com/enterprise/anomaly-engine/internal/bus"
	"github.com/enterprise/anomaly-engine/internal/cache"
	"github.com/enterprise/anomaly-engine/internal/dashauth"
	"github.com/enterprise/anomaly-engine/internal/dashboard"
	"github.com/enterprise/anomaly-engine/internal/detect"
	"github.com/enterprise/anomaly-engine/internal/metrics"
	"github.com/enterprise/anomaly-engine/internal/mlassist"
	"github.com/enterprise/anomaly-engine/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Dashboard.Environment)

	if cfg.Kafka.StateDir != "" {
		if err := os.Chdir(cfg.Kafka.StateDir); err != nil {
			log.Warn().Err(err).Str("state_dir", cfg.Kafka.StateDir).Msg("failed to change into configured state directory, continuing in current directory")
		}
	}

	log.Info().
		Str("environment", cfg.Dashboard.Environment).
		Str("variant", cfg.Engine.Variant).
		Strs("brokers", cfg.Kafka.Brokers).
		Msg("starting anomaly detection stream worker")

	source, err := bus.NewKafkaSource(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.InputTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kafka input topic")
	}
	resultsSink, err := bus.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kafka results topic")
	}
	alertsSink, err := bus.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kafka alerts topic")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ml, err := mlassist.New(ctx, mlassist.Config{
		Enabled:      cfg.MLAssist.Enabled,
		EndpointName: cfg.MLAssist.EndpointName,
		Region:       cfg.MLAssist.Region,
		Timeout:      cfg.MLAssist.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ml-assist client")
	}

	engineCfg := detect.Config{
		AnomalyThreshold:      cfg.Engine.AnomalyThreshold,
		MinTrainingSamples:    cfg.Engine.MinTrainingSamples,
		VelocityWindowMinutes: cfg.Engine.VelocityWindowMinutes,
		VelocityBurstCount:    cfg.Engine.VelocityBurstCount,
		GlobalWindowCapacity:  cfg.Engine.GlobalWindowCapacity,
	}

	var detector detect.Detector
	switch cfg.Engine.Variant {
	case "statistical":
		detector = detect.NewStatisticalDetector(engineCfg, detect.SystemClock{}, ml)
	default:
		detector = detect.NewEnsembleDetector(engineCfg, detect.SystemClock{}, ml)
	}

	m := metrics.New()
	prom := metrics.NewPrometheusRegistry()

	var auditSink *audit.Sink
	if cfg.Database.URL != "" {
		db, err := audit.NewDatabase(audit.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Warn().Err(err).Msg("audit database unavailable, continuing without persistent audit log")
		} else {
			defer db.Close()
			auditSink = audit.NewSink(db, cfg.Database.BatchSize, cfg.Database.FlushInterval, cfg.Database.BufferSize)
			defer auditSink.Close()
		}
	}

	var resultCache *cache.ResultCache
	if cfg.Cache.URL != "" {
		resultCache, err = cache.New(cache.Config{URL: cfg.Cache.URL, TTL: cfg.Cache.TTL})
		if err != nil {
			log.Warn().Err(err).Msg("result cache unavailable, continuing without it")
			resultCache = nil
		} else {
			defer resultCache.Close()
		}
	}

	pipe := pipeline.New(pipeline.Config{
		NumThreads:      cfg.Kafka.NumThreads,
		CommitIntervalMs: 1000,
		ShutdownTimeout: pipeline.DefaultConfig().ShutdownTimeout,
	}, source, resultsSink, alertsSink, detector, m, prom, auditSink, resultCache)

	if thresholdSetter, ok := detector.(detect.ThresholdSetter); ok {
		jwtManager := dashauth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration)
		dash := dashboard.New(dashboard.Config{
			Port:              cfg.Dashboard.Port,
			ReadTimeout:       cfg.Dashboard.ReadTimeout,
			WriteTimeout:      cfg.Dashboard.WriteTimeout,
			Environment:       cfg.Dashboard.Environment,
			AdminUsername:     cfg.Dashboard.AdminUsername,
			AdminPasswordHash: cfg.Dashboard.AdminPasswordHash,
		}, m, resultCache, jwtManager, thresholdSetter)

		go func() {
			if err := dash.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("dashboard server exited")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = dash.Shutdown(shutdownCtx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- pipe.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("pipeline exited with error")
		}
	}

	if err := source.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka source")
	}

	log.Info().Msg("stream worker shutdown complete")
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
