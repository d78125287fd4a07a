// Package mlassist realizes the teacher's ExternalMLScorer placeholder: an
// optional external ML inference call that contributes one additional
// signal to the detection engine's behavioural sub-score. It is disabled
// by default and, when disabled or on any failure, contributes nothing —
// the core scoring contract never depends on it.
package mlassist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/models"
)

// Config carries the optional SageMaker endpoint settings.
type Config struct {
	Enabled     bool
	EndpointName string
	Region      string
	Timeout     time.Duration
}

// Client invokes a SageMaker real-time inference endpoint and clamps the
// response into a [0,1] contribution.
type Client struct {
	cfg      Config
	sagemaker *sagemakerruntime.Client
}

// New builds a Client. When cfg.Enabled is false, New still returns a
// valid Client whose Score always returns (0, nil) without making any
// network call — callers do not need to special-case the disabled state.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{cfg: cfg}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for ml-assist: %w", err)
	}

	return &Client{
		cfg:       cfg,
		sagemaker: sagemakerruntime.NewFromConfig(awsCfg),
	}, nil
}

type inferenceRequest struct {
	TransactionID string             `json:"transaction_id"`
	Features      map[string]float64 `json:"features"`
}

type inferenceResponse struct {
	Score float64 `json:"score"`
}

// Score invokes the configured endpoint with tx's scored features and
// returns a contribution in [0,1]. Disabled clients, timeouts, and
// malformed responses all resolve to (0, err-or-nil) — never a panic,
// never a blocking call beyond cfg.Timeout.
func (c *Client) Score(tx *models.Transaction, features map[string]float64) (float64, error) {
	if !c.cfg.Enabled {
		return 0, nil
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	payload, err := json.Marshal(inferenceRequest{TransactionID: tx.TransactionID, Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ml-assist payload: %w", err)
	}

	out, err := c.sagemaker.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(c.cfg.EndpointName),
		ContentType:  aws.String("application/json"),
		Body:         payload,
	})
	if err != nil {
		log.Warn().Err(err).Str("txn_id", tx.TransactionID).Msg("ml-assist endpoint call failed")
		return 0, err
	}

	var resp inferenceResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return 0, fmt.Errorf("failed to parse ml-assist response: %w", err)
	}

	return clamp01(resp.Score), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
