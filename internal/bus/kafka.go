package bus

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
)

// KafkaSource consumes a single topic via a sarama consumer group. Sarama
// hands each partition's claim to its own ConsumeClaim goroutine, which is
// exactly the per-partition single-owner worker the pipeline relies on for
// per-user ordering.
type KafkaSource struct {
	group sarama.ConsumerGroup
	topic string
}

// NewKafkaSource dials brokers and joins groupID, retrying the initial
// connection the way the teacher's Kafka workers do, since brokers often
// aren't up yet when the worker container starts.
func NewKafkaSource(brokers []string, groupID, topic string) (*KafkaSource, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.Version = sarama.V3_0_0_0

	var group sarama.ConsumerGroup
	var err error
	for i := 0; i < 30; i++ {
		group, err = sarama.NewConsumerGroup(brokers, groupID, cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("failed to connect to kafka, retrying")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return nil, err
	}

	return &KafkaSource{group: group, topic: topic}, nil
}

func (s *KafkaSource) Run(ctx context.Context, handle func(ctx context.Context, rec Record) error) error {
	h := &consumerHandler{handle: handle}
	for {
		if err := s.group.Consume(ctx, []string{s.topic}, h); err != nil {
			log.Error().Err(err).Msg("consumer group error")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *KafkaSource) Close() error {
	return s.group.Close()
}

type consumerHandler struct {
	handle func(ctx context.Context, rec Record) error
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session.Context(), Record{Key: msg.Key, Value: msg.Value}); err != nil {
				log.Error().Err(err).Msg("record handler returned error")
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// KafkaSink publishes keyed records to a single topic via a sarama sync
// producer. Publish errors are surfaced to the caller; the pipeline logs
// and drops rather than retrying indefinitely, per the sink error policy.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSink dials brokers and creates a synchronous producer targeting
// topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 5
	cfg.Version = sarama.V3_0_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: producer, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	_, _, err := s.producer.SendMessage(msg)
	return err
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
