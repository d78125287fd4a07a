package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/models"
)

const insertQuery = `
	INSERT INTO anomaly_audit_log (
		id, transaction_id, user_id, merchant_id, is_anomaly, score,
		confidence, anomaly_type, feature_names, reason, detected_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Sink batches AnomalyResults and writes them to Postgres on a background
// goroutine, grounded on the teacher's audit/risk-score repositories but
// never called synchronously from the pipeline's hot path.
type Sink struct {
	db            *Database
	batchSize     int
	flushInterval time.Duration

	queue  chan models.AnomalyResult
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSink starts the background flush loop. bufferSize bounds how many
// pending results may queue before Record starts dropping the oldest
// (audit persistence is a best-effort enrichment, not a correctness
// dependency of the core pipeline).
func NewSink(db *Database, batchSize int, flushInterval time.Duration, bufferSize int) *Sink {
	s := &Sink{
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		queue:         make(chan models.AnomalyResult, bufferSize),
		done:          make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record enqueues a result for eventual persistence. Non-blocking: if the
// buffer is full, the oldest queued result is dropped with a warning.
func (s *Sink) Record(result models.AnomalyResult) {
	select {
	case s.queue <- result:
	default:
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- result:
		default:
			log.Warn().Msg("audit sink buffer full, dropping result")
		}
	}
}

func (s *Sink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]models.AnomalyResult, 0, s.batchSize)
	for {
		select {
		case r := <-s.queue:
			batch = append(batch, r)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.done:
			for {
				select {
				case r := <-s.queue:
					batch = append(batch, r)
				default:
					if len(batch) > 0 {
						s.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (s *Sink) flush(results []models.AnomalyResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgBatch := &pgx.Batch{}
	for _, r := range results {
		pgBatch.Queue(insertQuery,
			uuid.New(),
			r.TransactionID,
			r.OriginalTransaction.UserID,
			r.OriginalTransaction.MerchantID,
			r.IsAnomaly,
			r.Score,
			r.Confidence,
			string(r.Type),
			pq.Array(featureNames(r.FeaturesUsed)),
			r.Reason,
			r.DetectedAt,
		)
	}

	br := s.db.Pool.SendBatch(ctx, pgBatch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			log.Error().Err(err).Msg("failed to write audit batch entry")
		}
	}
}

func featureNames(features map[string]float64) []string {
	names := make([]string, 0, len(features))
	for k := range features {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Close stops accepting new records, flushes whatever remains, and
// returns once the background goroutine has exited.
func (s *Sink) Close() {
	close(s.done)
	s.wg.Wait()
}
