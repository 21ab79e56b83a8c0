// Package events publishes executed transactions to kafka
package events

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Transaction is the message published for every executed order
type Transaction struct {
	ID         string    `json:"id"`
	AccountID  int64     `json:"account_id"`
	Symbol     string    `json:"symbol"`
	Shares     int64     `json:"shares"`
	Price      string    `json:"price"`
	Amount     string    `json:"amount"`
	Side       string    `json:"side"`
	ExecutedAt time.Time `json:"executed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes transactions keyed by account, so one account's orders stay in one partition
type Kafka struct {
	writer messageWriter
}

// NewKafka is constructor. Writes are asynchronous: Notify only enqueues, delivery
// failures are logged, Close flushes what is still queued.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   delivered,
	}}
}

func delivered(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		log.WithFields(log.Fields{"topic": m.Topic, "account": string(m.Key)}).Errorf("publish transaction: %v", err)
	}
}

// Notify publishes t
func (k *Kafka) Notify(ctx context.Context, t model.Transaction) error {
	msg, err := message(t)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func message(t model.Transaction) (kafka.Message, error) {
	b, err := json.Marshal(Transaction{
		ID:         t.ID,
		AccountID:  t.AccountID,
		Symbol:     t.Symbol,
		Shares:     t.Shares,
		Price:      t.Price.String(),
		Amount:     t.Amount().String(),
		Side:       string(t.Side),
		ExecutedAt: t.ExecutedAt,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(t.AccountID, 10)),
		Value: b,
		Time:  t.ExecutedAt,
	}, nil
}
