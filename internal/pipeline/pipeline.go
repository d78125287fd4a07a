// Package pipeline wires the message bus to the detection engine: decode,
// score, observe, encode, and route to the all-results and alerts sinks,
// with per-record error isolation and a worker per input partition.
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/audit"
	"github.com/enterprise/anomaly-engine/internal/bus"
	"github.com/enterprise/anomaly-engine/internal/cache"
	"github.com/enterprise/anomaly-engine/internal/detect"
	"github.com/enterprise/anomaly-engine/internal/metrics"
	"github.com/enterprise/anomaly-engine/internal/models"
)

// Config carries the pipeline's recognized tuning options.
type Config struct {
	NumThreads        int
	CommitIntervalMs   int
	ShutdownTimeout    time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		NumThreads:      1,
		CommitIntervalMs: 1000,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Pipeline is the per-record processing topology described in §4.5: one
// source, two sinks, a Detector, and the surrounding metrics/audit/cache
// collaborators.
type Pipeline struct {
	cfg      Config
	source   bus.Source
	results  bus.Sink
	alerts   bus.Sink
	detector detect.Detector
	metrics  *metrics.Metrics
	prom     *metrics.PrometheusRegistry
	auditLog *audit.Sink
	cache    *cache.ResultCache

	wg    sync.WaitGroup // in-flight handleRecord calls, drained on shutdown
	runWg sync.WaitGroup // source.Run worker goroutines
}

// New wires a Pipeline. auditLog and resultCache are optional (nil is a
// valid, fully-functional configuration — they are enrichments, not
// dependencies of the core record-processing contract).
func New(cfg Config, source bus.Source, results, alerts bus.Sink, detector detect.Detector, m *metrics.Metrics, prom *metrics.PrometheusRegistry, auditLog *audit.Sink, resultCache *cache.ResultCache) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		results:  results,
		alerts:   alerts,
		detector: detector,
		metrics:  m,
		prom:     prom,
		auditLog: auditLog,
		cache:    resultCache,
	}
}

// Run starts cfg.NumThreads workers pulling from the source and blocks
// until ctx is cancelled or a worker returns a terminal error. Each worker
// runs its own call to source.Run, following the teacher's WorkerPool
// pattern (internal/scoring/worker.go): for KafkaSource this lets sarama
// assign partitions across concurrent Consume calls; for MemorySource it
// is multiple goroutines pulling off the same shared channel. On
// cancellation, Run waits up to cfg.ShutdownTimeout for in-flight records
// to finish before closing the sinks.
func (p *Pipeline) Run(ctx context.Context) error {
	numThreads := p.cfg.NumThreads
	if numThreads < 1 {
		numThreads = 1
	}
	p.metrics.SetActiveDetectors(numThreads)

	errCh := make(chan error, numThreads)
	for i := 0; i < numThreads; i++ {
		p.runWg.Add(1)
		go func() {
			defer p.runWg.Done()
			errCh <- p.source.Run(ctx, p.handleRecord)
		}()
	}

	var runErr error
	p.runWg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil && runErr == nil {
			runErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.cfg.ShutdownTimeout):
		log.Warn().Msg("pipeline shutdown timeout exceeded, closing sinks with work in flight")
	}

	if err := p.results.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close results sink")
	}
	if err := p.alerts.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close alerts sink")
	}

	return runErr
}

// handleRecord implements the five-step per-record protocol from §4.5.
// Any panic inside is recovered so one malformed record never brings down
// the worker processing the rest of its partition.
func (p *Pipeline) handleRecord(ctx context.Context, rec bus.Record) (err error) {
	p.wg.Add(1)
	defer p.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("record processing panic recovered")
			err = nil
		}
	}()

	start := time.Now()

	var tx models.Transaction
	if decodeErr := json.Unmarshal(rec.Value, &tx); decodeErr != nil {
		log.Warn().Err(decodeErr).Msg("dropping record: decode failure")
		return nil
	}
	if !tx.Valid() {
		log.Warn().Msg("dropping record: missing required fields")
		return nil
	}

	result := p.scoreRecord(&tx)
	p.observeRecord(&tx)

	encoded, encodeErr := json.Marshal(result)
	if encodeErr != nil {
		log.Error().Err(encodeErr).Str("txn_id", tx.TransactionID).Msg("dropping emission: encode failure")
		return nil
	}

	if pubErr := p.results.Publish(ctx, rec.Key, encoded); pubErr != nil {
		log.Error().Err(pubErr).Str("txn_id", tx.TransactionID).Msg("failed to publish to results sink")
	}
	if result.IsAnomaly {
		if pubErr := p.alerts.Publish(ctx, rec.Key, encoded); pubErr != nil {
			log.Error().Err(pubErr).Str("txn_id", tx.TransactionID).Msg("failed to publish to alerts sink")
		}
	}

	if p.auditLog != nil {
		p.auditLog.Record(*result)
	}

	duplicate := false
	if p.cache != nil {
		p.cache.Store(ctx, *result)
		duplicate = p.cache.SeenBefore(ctx, tx.TransactionID)
	}
	if duplicate {
		log.Debug().Str("txn_id", tx.TransactionID).Msg("dropping duplicate from metrics: already seen")
		return nil
	}

	elapsed := time.Since(start)
	p.metrics.RecordProcessed(result, elapsed)
	if p.prom != nil {
		p.prom.Observe(result.IsAnomaly, result.IsAnomaly, elapsed.Seconds())
	}

	return nil
}

func (p *Pipeline) scoreRecord(tx *models.Transaction) (result *models.AnomalyResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("txn_id", tx.TransactionID).Msg("scoring error")
			result = &models.AnomalyResult{
				TransactionID:       tx.TransactionID,
				IsAnomaly:           false,
				Score:               0,
				Confidence:          0.5,
				Type:                models.AnomalyUnknown,
				DetectedAt:          time.Now(),
				OriginalTransaction: *tx,
				FeaturesUsed:        map[string]float64{},
				Reason:              "scoring error",
			}
		}
	}()
	return p.detector.Score(tx)
}

func (p *Pipeline) observeRecord(tx *models.Transaction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("txn_id", tx.TransactionID).Msg("observe error recovered")
		}
	}()
	p.detector.Observe(tx)
}
