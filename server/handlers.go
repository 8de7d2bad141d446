package server

import (
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/acowan/tradebook/importer"
	"github.com/acowan/tradebook/stats"
	"github.com/acowan/tradebook/trade"
)

const maxImportBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.FetchAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if trades == nil {
		trades = []trade.Trade{}
	}
	s.respondJSON(w, http.StatusOK, trades)
}

func (s *Server) handleDeleteAllTrades(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteAll(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.store.Delete(id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, errors.New("trade not found"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// statsResponse shadows ProfitFactor so an all-winner journal, where the
// factor is +Inf, still serializes. JSON has no infinity; null stands in.
type statsResponse struct {
	stats.TradeStats
	ProfitFactor any `json:"profitFactor"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.FetchAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	result := stats.Compute(trades, s.displayCurrency(r), s.rates.Converter())
	resp := statsResponse{TradeStats: result, ProfitFactor: result.ProfitFactor}
	if math.IsInf(result.ProfitFactor, 1) {
		resp.ProfitFactor = nil
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.FetchAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	daily := stats.ComputeDaily(trades, s.displayCurrency(r), s.rates.Converter())
	if daily == nil {
		daily = []stats.DailyStats{}
	}
	s.respondJSON(w, http.StatusOK, daily)
}

// handleImport accepts a multipart upload: either an "mt5" HTML report, or a
// "balance" CSV with an optional "orders" CSV. A "currency" field overrides
// the account currency for MT5 reports.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	accountCurrency := r.FormValue("currency")
	if accountCurrency == "" {
		accountCurrency = s.base
	}

	var created []trade.Trade
	if mt5, ok := formFile(r, "mt5"); ok {
		defer mt5.Close()
		var err error
		created, err = s.importer.ImportMT5(mt5, accountCurrency)
		if err != nil {
			s.respondImportError(w, err)
			return
		}
	} else if balance, ok := formFile(r, "balance"); ok {
		defer balance.Close()
		var orders multipart.File
		if f, ok := formFile(r, "orders"); ok {
			defer f.Close()
			orders = f
		}
		var err error
		if orders != nil {
			created, err = s.importer.ImportBalanceAndOrders(balance, orders)
		} else {
			created, err = s.importer.ImportBalanceAndOrders(balance, nil)
		}
		if err != nil {
			s.respondImportError(w, err)
			return
		}
	} else {
		s.respondError(w, http.StatusBadRequest, errors.New("upload an mt5 report or a balance history"))
		return
	}

	estimated := 0
	for _, t := range created {
		if t.Estimated {
			estimated++
		}
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"imported":  len(created),
		"estimated": estimated,
		"trades":    created,
	})
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	rates := s.rates.Refresh(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (s *Server) displayCurrency(r *http.Request) string {
	if c := strings.ToUpper(r.URL.Query().Get("currency")); c != "" {
		return c
	}
	return s.base
}

func (s *Server) respondImportError(w http.ResponseWriter, err error) {
	if errors.Is(err, importer.ErrNoTrades) {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respondError(w, http.StatusBadRequest, err)
}

func formFile(r *http.Request, field string) (multipart.File, bool) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, false
	}
	return f, true
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, err error) {
	s.respondJSON(w, code, map[string]string{"error": err.Error()})
}
