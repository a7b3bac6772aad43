package services

import (
	"context"
	"fmt"
	"sync"

	"mailledger/internal/amqp"
	"mailledger/internal/categories"
	"mailledger/internal/core"
	"mailledger/internal/ledger"
	"mailledger/internal/log"
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// RateSource provides the USD to CRC rate used by summaries.
type RateSource interface {
	USDToCRC(ctx context.Context) float64
}

// LedgerService serialises every access to the ledger file and publishes
// an event after each successful change.
type LedgerService struct {
	mu         sync.Mutex
	store      *ledger.Store
	categories *categories.Store
	rates      RateSource
	publisher  EventPublisher
	logger     *log.Logger
}

// NewLedgerService wires the ledger store with its optional collaborators.
// categories, rates and publisher may be nil.
func NewLedgerService(store *ledger.Store, cats *categories.Store, rates RateSource, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	return &LedgerService{
		store:      store,
		categories: cats,
		rates:      rates,
		publisher:  publisher,
		logger:     logger,
	}
}

// Save appends tx unless its identity is already present.
func (s *LedgerService) Save(ctx context.Context, tx core.Transaction) (bool, error) {
	s.mu.Lock()
	saved, err := s.store.Save(tx)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("save transaction: %w", err)
	}
	if saved {
		log.NewStructuredLogger(s.logger).LogTransactionSaved(ctx, tx)
		s.publish(ctx, amqp.NewCreatedEvent(tx))
	}
	return saved, nil
}

// List returns every stored transaction with categories resolved.
func (s *LedgerService) List(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	txs, err := s.store.GetAll()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if s.categories != nil {
		s.categories.Resolve(txs)
	}
	return txs, nil
}

// Get returns the transaction with id, category resolved.
func (s *LedgerService) Get(ctx context.Context, id string) (core.Transaction, bool, error) {
	s.mu.Lock()
	tx, ok, err := s.store.Get(id)
	s.mu.Unlock()
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}
	if ok && s.categories != nil {
		tx.Category, _ = s.categories.Get(tx.Merchant)
	}
	return tx, ok, nil
}

// Update replaces the transaction with id. The identity of the stored row
// follows the new fields.
func (s *LedgerService) Update(ctx context.Context, id string, tx core.Transaction) (bool, error) {
	if err := tx.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	updated, err := s.store.Update(id, tx)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	if updated {
		s.logger.InfoContext(ctx, "Transaction updated",
			log.FieldOperation, log.OpUpdate,
			"previous_id", id,
			log.FieldGlobalID, tx.GlobalID())
		s.publish(ctx, amqp.NewUpdatedEvent(id, tx))
	}
	return updated, nil
}

// Delete removes the transaction with id.
func (s *LedgerService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	deleted, err := s.store.Delete(id)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if deleted {
		s.logger.InfoContext(ctx, "Transaction deleted",
			log.FieldOperation, log.OpDelete,
			log.FieldGlobalID, id)
		s.publish(ctx, amqp.NewDeletedEvent(id))
	}
	return deleted, nil
}

// Summary aggregates the ledger, converting CRC totals at the current rate.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	var rate float64
	if s.rates != nil {
		rate = s.rates.USDToCRC(ctx)
	}
	return core.Summarize(txs, rate), nil
}

// Categories returns every merchant to category mapping.
func (s *LedgerService) Categories() map[string]string {
	if s.categories == nil {
		return map[string]string{}
	}
	return s.categories.All()
}

// SetCategories stores each mapping. Blank entries are ignored.
func (s *LedgerService) SetCategories(ctx context.Context, mappings map[string]string) error {
	if s.categories == nil {
		return fmt.Errorf("categories store not configured")
	}
	for merchant, category := range mappings {
		if err := s.categories.Set(merchant, category); err != nil {
			return fmt.Errorf("set category for %q: %w", merchant, err)
		}
	}
	s.logger.InfoContext(ctx, "Categories updated", "count", len(mappings))
	return nil
}

// Ready reports whether the ledger file is reachable.
func (s *LedgerService) Ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.store.Exists("")
	return err
}

// publish never fails the caller; the ledger is the source of truth.
func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			"event_type", event.Type,
			log.FieldGlobalID, event.GlobalID)
	}
}
