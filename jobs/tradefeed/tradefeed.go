// Package tradefeed mirrors match results onto a Kafka topic for downstream
// consumers that want a durable feed instead of the raw multicast stream.
// It is fed by its own non-blocking tap, so a slow broker can never
// backpressure the matcher.
package tradefeed

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"bolt/domain/orderbook"
)

type Event struct {
	V         int    `json:"v"`
	Type      string `json:"type"`
	Product   uint16 `json:"product"`
	TakerID   uint64 `json:"taker_id"`
	MakerID   uint64 `json:"maker_id"`
	TakerSide string `json:"taker_side"`
	Price     uint64 `json:"price"`
	Qty       uint64 `json:"qty"`
	Seq       uint64 `json:"seq"`
	ExecTime  uint64 `json:"exec_time"`
}

type Feed struct {
	producer sarama.SyncProducer
	topic    string
	results  <-chan orderbook.MatchResult
	logger   *zap.SugaredLogger
}

func New(brokers []string, topic string, results <-chan orderbook.MatchResult, logger *zap.SugaredLogger) (*Feed, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Feed{
		producer: producer,
		topic:    topic,
		results:  results,
		logger:   logger,
	}, nil
}

func (f *Feed) Run(ctx context.Context) {
	f.logger.Infow("trade feed started", "topic", f.topic)
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-f.results:
			f.publish(&r)
		}
	}
}

func (f *Feed) publish(r *orderbook.MatchResult) {
	payload, err := json.Marshal(Event{
		V:         1,
		Type:      "trade",
		Product:   r.ProductID,
		TakerID:   r.TakerID,
		MakerID:   r.MakerID,
		TakerSide: r.TakerSide.String(),
		Price:     r.Price,
		Qty:       r.Quantity,
		Seq:       r.Seq,
		ExecTime:  r.ExecTime,
	})
	if err != nil {
		f.logger.Warnw("trade event marshal failed", "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := f.producer.SendMessage(msg); err != nil {
		f.logger.Warnw("trade feed publish failed", "seq", r.Seq, "err", err)
	}
}

func (f *Feed) Close() error {
	return f.producer.Close()
}
