// Package ingest consumes normalized signals from Kafka and stores them
// through the scoring service.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

const (
	defaultPollTimeout = 5 * time.Second
	defaultBackoff     = 200 * time.Millisecond
	maxBackoff         = 30 * time.Second
)

var ErrPoisonMessage = errors.New("undecodable signal message")

type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type SignalIngester interface {
	IngestSignals(ctx context.Context, signals []scoring.Signal) (service.IngestResult, error)
}

type Recorder interface {
	SignalsIngested(source string, accepted, duplicates int)
	IngestError(kind string)
}

// NewReader builds a consumer-group reader for cfg.
func NewReader(cfg Config) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("signal topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	}), nil
}

type Consumer struct {
	reader   MessageReader
	ingester SignalIngester
	metrics  Recorder
	logger   *zap.Logger
	poll     time.Duration
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewConsumer(reader MessageReader, ingester SignalIngester, metrics Recorder, logger *zap.Logger, poll time.Duration) *Consumer {
	if reader == nil || ingester == nil {
		panic("ingest consumer requires a reader and an ingester")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if poll <= 0 {
		poll = defaultPollTimeout
	}
	return &Consumer{
		reader:   reader,
		ingester: ingester,
		metrics:  metrics,
		logger:   logger.Named("ingest"),
		poll:     poll,
		backoff:  defaultBackoff,
		sleep:    sleepCtx,
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run consumes until ctx is cancelled or the reader is closed. Offsets are
// committed only after a message is stored or found undecodable; a storage
// failure holds the offset and retries the same message.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("signal consumer started", zap.Duration("poll_timeout", c.poll))
	defer c.logger.Info("signal consumer stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.logger.Error("fetch failed", zap.Error(err))
			c.record("fetch")
			if err := c.sleep(ctx, c.backoff); err != nil {
				return err
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			return err
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		err = c.reader.CommitMessages(commitCtx, msg)
		commitCancel()
		if err != nil && !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			c.logger.Error("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
			c.record("commit")
		}
	}
}

// handle stores one message. It only returns an error when ctx ends while a
// storage failure is being retried.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	log := c.logger.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	signals, err := Decode(msg.Value)
	if err != nil {
		log.Warn("skipping undecodable message", zap.Error(err))
		c.record("decode")
		return nil
	}

	wait := c.backoff
	for attempt := 1; ; attempt++ {
		res, err := c.ingester.IngestSignals(ctx, signals)
		if err == nil {
			if c.metrics != nil {
				c.metrics.SignalsIngested("kafka", res.Accepted, res.Duplicates)
			}
			log.Debug("stored signals", zap.Int("accepted", res.Accepted), zap.Int("duplicates", res.Duplicates))
			return nil
		}
		if errors.Is(err, service.ErrInvalidArgument) {
			log.Warn("skipping invalid signals", zap.Error(err))
			c.record("invalid")
			return nil
		}

		log.Warn("storing signals failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		c.record("store")
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
		wait = min(2*wait, maxBackoff)
	}
}

func (c *Consumer) record(kind string) {
	if c.metrics != nil {
		c.metrics.IngestError(kind)
	}
}

// Decode accepts either a single JSON signal or an array of them.
func Decode(raw []byte) ([]scoring.Signal, error) {
	return DecodeWithSource(raw, "kafka")
}

// DecodeWithSource is Decode with source stamped on signals that carry none.
func DecodeWithSource(raw []byte, source string) ([]scoring.Signal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrPoisonMessage)
	}

	var signals []scoring.Signal
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &signals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		}
	} else {
		var s scoring.Signal
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPoisonMessage, err)
		}
		signals = append(signals, s)
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("%w: empty signal list", ErrPoisonMessage)
	}
	for i := range signals {
		if signals[i].Source == "" {
			signals[i].Source = source
		}
	}
	return signals, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
