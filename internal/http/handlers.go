package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"mailledger/internal/core"
	"mailledger/internal/log"
	"mailledger/internal/services"
)

const serviceName = "mailledger"

// TransactionResponse is the JSON form of a ledger row.
type TransactionResponse struct {
	GlobalID          string `json:"global_id"`
	Timestamp         string `json:"timestamp"`
	Merchant          string `json:"merchant"`
	Amount            string `json:"amount"`
	AmountCents       int64  `json:"amount_cents"`
	Currency          string `json:"currency"`
	Institution       string `json:"institution"`
	PaymentInstrument string `json:"payment_instrument"`
	Notes             string `json:"notes"`
	Category          string `json:"category,omitempty"`
}

// SummaryResponse is the JSON form of core.Summary. Amounts are decimal
// strings in major units.
type SummaryResponse struct {
	TotalTransactions     int               `json:"total_transactions"`
	ByInstitution         map[string]int    `json:"by_institution"`
	ByCurrency            map[string]int    `json:"by_currency"`
	ByCategory            map[string]int    `json:"by_category"`
	TotalAmountByCurrency map[string]string `json:"total_amount_by_currency"`
	TotalAmountByCategory map[string]string `json:"total_amount_by_category"`
	USDToCRC              float64           `json:"usd_to_crc"`
	TotalUSDEquivalent    string            `json:"total_usd_equivalent"`
}

func newTransactionResponse(tx core.Transaction) TransactionResponse {
	return TransactionResponse{
		GlobalID:          tx.GlobalID(),
		Timestamp:         core.FormatISO(tx.Timestamp),
		Merchant:          tx.Merchant,
		Amount:            tx.Amount.String(),
		AmountCents:       tx.Amount.Cents,
		Currency:          tx.Currency,
		Institution:       tx.Institution,
		PaymentInstrument: tx.PaymentInstrument,
		Notes:             tx.Notes,
		Category:          tx.Category,
	}
}

func newSummaryResponse(s core.Summary) SummaryResponse {
	resp := SummaryResponse{
		TotalTransactions:     s.Count,
		ByInstitution:         s.ByInstitution,
		ByCurrency:            s.ByCurrency,
		ByCategory:            s.ByCategory,
		TotalAmountByCurrency: make(map[string]string, len(s.TotalByCurrency)),
		TotalAmountByCategory: make(map[string]string, len(s.TotalByCategory)),
		USDToCRC:              s.USDToCRC,
		TotalUSDEquivalent:    s.TotalUSDEquivalent.String(),
	}
	for cur, m := range s.TotalByCurrency {
		resp.TotalAmountByCurrency[cur] = m.String()
	}
	for cat, m := range s.TotalByCategory {
		resp.TotalAmountByCategory[cat] = m.String()
	}
	return resp
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":                 "healthy",
		"service":                serviceName,
		"supported_institutions": s.ingest.Institutions(),
	}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the ledger file can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"status":         "ok",
		},
	}

	if err := s.ledger.Ready(); err != nil {
		checks["ledger"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	sec := s.detector.GetMetrics()
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n", s.tracer.TotalRequests())
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n", s.limiter.Hits())
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n", sec.SuspiciousRequests)
	fmt.Fprintf(w, "# TYPE rejected_api_keys_total counter\n")
	fmt.Fprintf(w, "rejected_api_keys_total %d\n", sec.RejectedKeys)
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingest.Sync(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "Sync failed", err, log.OpSync)
		InternalServerError("sync failed").Write(w)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	start, end, err := req.Range()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	res, err := s.ingest.Backfill(r.Context(), start, end)
	if errors.Is(err, services.ErrInvalidRange) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err != nil {
		s.logFailure(r.Context(), "Backfill failed", err, log.OpBackfill)
		InternalServerError("backfill failed").Write(w)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.List(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "List transactions failed", err, log.OpRead)
		InternalServerError("failed to read ledger").Write(w)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionResponse(tx))
	}
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "Summary failed", err, log.OpRead)
		InternalServerError("failed to summarise ledger").Write(w)
		return
	}
	NewJSONResponse().Data(newSummaryResponse(sum)).Write(w)
}

// handleUpdateTransaction replaces a row. A category in the body is stored
// as the mapping for the row's merchant.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	tx, err := req.ToTransaction()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	updated, err := s.ledger.Update(r.Context(), id, tx)
	if err != nil {
		s.logFailure(r.Context(), "Update transaction failed", err, log.OpUpdate)
		InternalServerError("failed to update transaction").Write(w)
		return
	}
	if !updated {
		NotFoundError("transaction not found").Write(w)
		return
	}

	if tx.Category != "" {
		if err := s.ledger.SetCategories(r.Context(), map[string]string{tx.Merchant: tx.Category}); err != nil {
			s.logFailure(r.Context(), "Store category failed", err, log.OpUpdate)
			InternalServerError("transaction updated but category was not stored").Write(w)
			return
		}
	}

	NewJSONResponse().Data(newTransactionResponse(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.ledger.Delete(r.Context(), id)
	if err != nil {
		s.logFailure(r.Context(), "Delete transaction failed", err, log.OpDelete)
		InternalServerError("failed to delete transaction").Write(w)
		return
	}
	if !deleted {
		NotFoundError("transaction not found").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{"deleted": id}).Write(w)
}

type categoryEntry struct {
	Merchant string `json:"merchant"`
	Category string `json:"category"`
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	all := s.ledger.Categories()
	out := make([]categoryEntry, 0, len(all))
	for merchant, category := range all {
		out = append(out, categoryEntry{Merchant: merchant, Category: category})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	NewJSONResponse().Data(out).Write(w)
}

// handlePutCategories accepts a merchant to category object.
func (s *Server) handlePutCategories(w http.ResponseWriter, r *http.Request) {
	var mappings map[string]string
	if err := decodeJSON(r, &mappings); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ledger.SetCategories(r.Context(), mappings); err != nil {
		s.logFailure(r.Context(), "Set categories failed", err, log.OpUpdate)
		InternalServerError("failed to store categories").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]int{"updated": len(mappings)}).Write(w)
}

func (s *Server) logFailure(ctx context.Context, msg string, err error, op string) {
	sl := log.NewStructuredLogger(log.FromContext(ctx))
	sl.LogError(ctx, msg, err, log.ComponentHTTP, op, log.NewFields())
}
