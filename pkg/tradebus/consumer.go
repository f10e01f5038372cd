package tradebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const commitTimeout = 5 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TradeHandler receives one decoded batch. Returning an error retries the
// whole batch, so handlers must be idempotent on TradeID.
type TradeHandler func(ctx context.Context, events []TradeEvent) error

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	// batches are handled concurrently by WorkerCount workers but offsets are
	// always committed in fetch order
	WorkerCount int
	MaxRetries  int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	// a batch is flushed when it reaches BatchSize or no message arrives
	// for BatchTimeout
	BatchSize    int
	BatchTimeout time.Duration
}

type ConsumerGroup struct {
	r   messageReader
	cfg ConsumerConfig
	dlq *Producer
}

// fetched is a batch tagged with its position in fetch order.
type fetched struct {
	seq  uint64
	msgs []kafka.Message
}

func withDefaults(cfg ConsumerConfig) ConsumerConfig {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	return cfg
}

func NewConsumerGroup(cfg ConsumerConfig) *ConsumerGroup {
	cfg = withDefaults(cfg)

	cg := &ConsumerGroup{
		cfg: cfg,
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       cfg.Topic,
			StartOffset: kafka.FirstOffset,
			MaxWait:     500 * time.Millisecond,
			MinBytes:    1,
			MaxBytes:    10 << 20,
		}),
	}
	if cfg.DLQTopic != "" {
		cg.dlq = NewProducer(ProducerConfig{Brokers: cfg.Brokers})
	}
	return cg
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.dlq != nil {
		_ = cg.dlq.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run feeds decoded trade batches to handler until ctx is done.
//
// A batch is finished when handler succeeds, when it has failed MaxRetries+1
// times, or when it does not decode; unfinished-for-good batches are copied to
// the DLQ topic if one is configured. Finished batches are committed strictly
// in fetch order, so a batch still retrying holds back the commits of every
// later batch and a crash redelivers rather than loses it.
func (cg *ConsumerGroup) Run(ctx context.Context, handler TradeHandler) error {
	if cg == nil || cg.r == nil {
		return errors.New("consumer not initialized")
	}

	batches := make(chan fetched, cg.cfg.WorkerCount)
	finished := make(chan fetched, cg.cfg.WorkerCount)

	go cg.fetchLoop(ctx, batches)

	committerDone := make(chan struct{})
	go func() {
		defer close(committerDone)
		cg.commitInOrder(ctx, finished)
	}()

	var wg sync.WaitGroup
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				if !cg.process(ctx, b.msgs, handler) {
					return
				}
				finished <- b
			}
		}()
	}
	wg.Wait()
	close(finished)
	<-committerDone

	return ctx.Err()
}

// fetchLoop groups messages into batches and numbers them.
func (cg *ConsumerGroup) fetchLoop(ctx context.Context, out chan<- fetched) {
	defer close(out)

	var (
		seq     uint64
		pending []kafka.Message
	)
	emit := func() bool {
		if len(pending) == 0 {
			return true
		}
		select {
		case out <- fetched{seq: seq, msgs: pending}:
			seq++
			pending = nil
			return true
		case <-ctx.Done():
			return false
		}
	}

	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, cg.cfg.BatchTimeout)
		m, err := cg.r.FetchMessage(waitCtx)
		cancel()

		switch {
		case err == nil:
			pending = append(pending, m)
			if len(pending) < cg.cfg.BatchSize {
				continue
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, context.DeadlineExceeded):
			// idle: flush what we have
		default:
			zap.S().Warnf("kafka fetch error: %v", err)
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		if !emit() {
			return
		}
	}
}

// commitInOrder commits finished batches once every earlier batch has
// finished too. Commits use a context detached from ctx so work finished
// before shutdown is still acknowledged.
func (cg *ConsumerGroup) commitInOrder(ctx context.Context, finished <-chan fetched) {
	var next uint64
	waiting := map[uint64][]kafka.Message{}

	for b := range finished {
		waiting[b.seq] = b.msgs
		for {
			msgs, ok := waiting[next]
			if !ok {
				break
			}
			delete(waiting, next)
			next++

			commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
			if err := cg.r.CommitMessages(commitCtx, msgs...); err != nil {
				zap.S().Warnf("commit %d messages failed: %v", len(msgs), err)
			}
			cancel()
		}
	}

	if len(waiting) > 0 {
		zap.S().Infof("%d finished batches left uncommitted behind batch %d", len(waiting), next)
	}
}

// process returns false when ctx ended before the batch finished.
func (cg *ConsumerGroup) process(ctx context.Context, msgs []kafka.Message, handler TradeHandler) bool {
	events, err := decodeTrades(msgs)
	if err != nil {
		// retrying cannot fix a payload
		zap.S().Errorf("undecodable batch of %d: %v", len(msgs), err)
		cg.deadLetter(ctx, msgs, err)
		return true
	}

	for attempt := 1; ; attempt++ {
		err := handler(ctx, events)
		if err == nil {
			return true
		}
		if attempt > cg.cfg.MaxRetries {
			zap.S().Errorf("giving up on batch of %d after %d attempts: %v", len(msgs), attempt, err)
			cg.deadLetter(ctx, msgs, err)
			return true
		}
		select {
		case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return false
		}
	}
}

func (cg *ConsumerGroup) deadLetter(ctx context.Context, msgs []kafka.Message, cause error) {
	if cg.dlq == nil || cg.cfg.DLQTopic == "" {
		return
	}
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		headers := append([]kafka.Header{}, m.Headers...)
		headers = append(headers, kafka.Header{Key: "error", Value: []byte(cause.Error())})
		out = append(out, kafka.Message{Topic: cg.cfg.DLQTopic, Key: m.Key, Value: m.Value, Headers: headers})
	}
	if err := cg.dlq.Publish(ctx, out...); err != nil {
		zap.S().Errorf("publish to dlq failed: %v", err)
	}
}

func decodeTrades(msgs []kafka.Message) ([]TradeEvent, error) {
	events := make([]TradeEvent, len(msgs))
	for i, m := range msgs {
		if err := json.Unmarshal(m.Value, &events[i]); err != nil {
			return nil, fmt.Errorf("trade at %d/%d: %w", m.Partition, m.Offset, err)
		}
	}
	return events, nil
}

// backoffDuration is full jitter over min*2^(attempt-1), capped at max.
func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(min) * math.Pow(2, float64(attempt-1)))
	if d > max || d <= 0 {
		d = max
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}
