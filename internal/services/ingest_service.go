package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"mailledger/internal/core"
	"mailledger/internal/log"
	"mailledger/internal/parsers"
)

// Fetcher retrieves notification messages from a mailbox.
type Fetcher interface {
	FetchUnseen(ctx context.Context) ([]core.Message, error)
	// FetchRange returns messages dated in [start, end).
	FetchRange(ctx context.Context, start, end time.Time) ([]core.Message, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

var ErrInvalidRange = errors.New("start date must be before end date")

// IngestService runs messages through the strategy registry into the ledger.
type IngestService struct {
	fetcher  Fetcher
	registry *parsers.Registry
	ledger   *LedgerService
	workers  int
	logger   *log.Logger
}

// NewIngestService builds an ingest pipeline. workers bounds concurrent
// parsing; zero or less means one per CPU.
func NewIngestService(fetcher Fetcher, registry *parsers.Registry, ledger *LedgerService, workers int, logger *log.Logger) *IngestService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.Default(log.ComponentIngest)
	}
	return &IngestService{
		fetcher:  fetcher,
		registry: registry,
		ledger:   ledger,
		workers:  workers,
		logger:   logger,
	}
}

// Institutions lists the institutions the registry can parse, in priority order.
func (s *IngestService) Institutions() []string {
	return s.registry.Institutions()
}

// Sync ingests unseen mail and marks every handled message as seen.
func (s *IngestService) Sync(ctx context.Context) (core.SyncResult, error) {
	if s.fetcher == nil {
		return core.SyncResult{}, errors.New("mail fetcher not configured")
	}
	msgs, err := s.fetcher.FetchUnseen(ctx)
	if err != nil {
		return core.SyncResult{}, fmt.Errorf("fetch unseen: %w", err)
	}

	res, handled, err := s.process(ctx, msgs)
	if len(handled) > 0 {
		if merr := s.fetcher.MarkSeen(ctx, handled); merr != nil {
			s.logger.WarnContext(ctx, "Failed to mark messages seen",
				log.FieldError, merr,
				log.FieldMessageCount, len(handled))
		}
	}
	s.logResult(ctx, log.OpSync, res)
	return res, err
}

// Backfill ingests every message dated in [start, end). Seen flags are left
// untouched.
func (s *IngestService) Backfill(ctx context.Context, start, end time.Time) (core.SyncResult, error) {
	if s.fetcher == nil {
		return core.SyncResult{}, errors.New("mail fetcher not configured")
	}
	if !start.Before(end) {
		return core.SyncResult{}, ErrInvalidRange
	}
	msgs, err := s.fetcher.FetchRange(ctx, start, end)
	if err != nil {
		return core.SyncResult{}, fmt.Errorf("fetch range: %w", err)
	}

	res, _, err := s.process(ctx, msgs)
	s.logResult(ctx, log.OpBackfill, res)
	return res, err
}

// Process parses msgs concurrently and saves the results in message order.
func (s *IngestService) Process(ctx context.Context, msgs []core.Message) (core.SyncResult, error) {
	res, _, err := s.process(ctx, msgs)
	return res, err
}

type outcome struct {
	tx      core.Transaction
	matched bool
	err     error
}

// process returns the UIDs whose outcome is final. A storage error stops
// the batch; messages after it are left for the next run.
func (s *IngestService) process(ctx context.Context, msgs []core.Message) (core.SyncResult, []uint32, error) {
	var res core.SyncResult
	if len(msgs) == 0 {
		return res, nil, nil
	}

	outcomes := make([]outcome, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, msg := range msgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.parse(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, nil, err
	}

	handled := make([]uint32, 0, len(msgs))
	for i, o := range outcomes {
		msg := msgs[i]
		switch {
		case !o.matched:
			res.Unmatched++
		case o.err != nil:
			res.Failed++
		default:
			saved, err := s.ledger.Save(ctx, o.tx)
			if err != nil {
				return res, handled, err
			}
			if saved {
				res.Processed++
			} else {
				res.Duplicates++
			}
		}
		handled = append(handled, msg.UID)
	}
	return res, handled, nil
}

func (s *IngestService) parse(msg core.Message) outcome {
	strategy, ok := s.registry.Select(msg)
	if !ok {
		s.logger.Debug("No strategy for message", log.NewFields().WithMessage(msg).ToSlice()...)
		return outcome{}
	}
	tx, err := strategy.Parse(msg)
	if err != nil {
		fields := log.NewFields().
			WithMessage(msg).
			WithOperation(log.OpParse).
			WithError(err)
		fields[log.FieldInstitution] = strategy.Institution()
		s.logger.Warn("Failed to parse message", fields.ToSlice()...)
		return outcome{matched: true, err: err}
	}
	return outcome{tx: tx, matched: true}
}

func (s *IngestService) logResult(ctx context.Context, op string, res core.SyncResult) {
	s.logger.InfoContext(ctx, "Ingest finished",
		log.FieldOperation, op,
		"processed", res.Processed,
		"duplicates", res.Duplicates,
		"unmatched", res.Unmatched,
		"failed", res.Failed)
}
