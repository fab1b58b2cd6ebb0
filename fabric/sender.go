package fabric

import (
	"context"
	"log/slog"
	"time"
)

// Sender dispatches chaincode calls for one channel and chaincode through
// the gateway pool.
type Sender struct {
	pool      *GatewayPool
	channel   string
	chaincode string
	log       *slog.Logger
}

func NewSender(pool *GatewayPool, channel, chaincode string, log *slog.Logger) *Sender {
	return &Sender{pool: pool, channel: channel, chaincode: chaincode, log: log}
}

// Query evaluates fn on a peer without ordering a transaction.
func (s *Sender) Query(ctx context.Context, fn string, args ...string) ([]byte, error) {
	var payload []byte
	err := s.dispatch(ctx, fn, false, func(ctx context.Context, gw Gateway) error {
		var err error
		payload, err = gw.Evaluate(ctx, s.channel, s.chaincode, fn, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Invoke endorses, submits and waits for the commit status of fn.
func (s *Sender) Invoke(ctx context.Context, fn string, args ...string) (*SubmitResult, error) {
	var result *SubmitResult
	err := s.dispatch(ctx, fn, true, func(ctx context.Context, gw Gateway) error {
		var err error
		result, err = gw.Submit(ctx, s.channel, s.chaincode, fn, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Sender) dispatch(ctx context.Context, fn string, write bool, call func(context.Context, Gateway) error) error {
	start := time.Now()
	if err := s.pool.Do(ctx, call); err != nil {
		s.log.Error("Chaincode call failed",
			"err", err,
			slog.String("function", fn),
			slog.Bool("write", write),
			slog.Duration("duration", time.Since(start)))
		return err
	}

	s.log.Debug("Chaincode call completed",
		slog.String("function", fn),
		slog.Bool("write", write),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *Sender) Close() error {
	return s.pool.Close()
}
