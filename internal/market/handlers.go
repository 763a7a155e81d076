package market

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/settld/settlement-engine/internal/ledger"
	"github.com/settld/settlement-engine/internal/model"
	"github.com/settld/settlement-engine/internal/settle"
	"github.com/settld/settlement-engine/internal/store"
)

// --- Request/Response types ---

// CreateEventRequest is the JSON body for POST /api/v1/events.
type CreateEventRequest struct {
	Creator     string    `json:"creator"`
	UniqueID    uint64    `json:"unique_id"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"` // RFC 3339
}

// ResolveRequest is the JSON body for POST /api/v1/events/{creator}/{uniqueID}/resolve.
type ResolveRequest struct {
	Caller string `json:"caller"`
	Result string `json:"result"` // "YES" or "NO"
}

// StakeRequest is the JSON body for POST /api/v1/stake.
type StakeRequest struct {
	Staker   string `json:"staker"`
	Creator  string `json:"creator"`
	UniqueID uint64 `json:"unique_id"`
	Amount   uint64 `json:"amount"` // base units
	Outcome  string `json:"outcome"`
}

// StakeResponse echoes the accepted stake and the updated supplies.
type StakeResponse struct {
	Staker        string          `json:"staker"`
	Outcome       string          `json:"outcome"`
	Amount        uint64          `json:"amount"`
	AmountDisplay decimal.Decimal `json:"amount_display"`
	YesSupply     uint64          `json:"yes_supply"`
	NoSupply      uint64          `json:"no_supply"`
}

// RedeemRequest is the JSON body for POST /api/v1/redeem.
type RedeemRequest struct {
	Redeemer string `json:"redeemer"`
	Creator  string `json:"creator"`
	UniqueID uint64 `json:"unique_id"`
	Outcome  string `json:"outcome"`
}

// RedeemResponse reports the settled amounts.
type RedeemResponse struct {
	Redeemer   string          `json:"redeemer"`
	Gross      uint64          `json:"gross"`
	Fee        uint64          `json:"fee"`
	Net        uint64          `json:"net"`
	NetDisplay decimal.Decimal `json:"net_display"`
	Burned     uint64          `json:"burned"`
}

// EventResponse is an event record plus its live escrow balance.
type EventResponse struct {
	model.Event
	EscrowBalance uint64 `json:"escrow_balance"`
}

// --- HTTP Handlers ---

// HandleCreateEvent handles POST /api/v1/events.
func (s *Service) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Creator == "" {
		writeError(w, "creator is required", http.StatusBadRequest)
		return
	}

	event, err := s.CreateEvent(r.Context(), req.Creator, req.UniqueID, req.Description, req.Deadline)
	if err != nil {
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// HandleResolve handles POST /api/v1/events/{creator}/{uniqueID}/resolve.
func (s *Service) HandleResolve(w http.ResponseWriter, r *http.Request) {
	creator, uniqueID, ok := eventParams(w, r)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := model.ParseOutcome(req.Result)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := s.Resolve(r.Context(), req.Caller, creator, uniqueID, result)
	if err != nil {
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// HandleStake handles POST /api/v1/stake.
func (s *Service) HandleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Staker == "" {
		writeError(w, "staker is required", http.StatusBadRequest)
		return
	}
	outcome, err := model.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := s.Stake(r.Context(), req.Staker, req.Creator, req.UniqueID, req.Amount, outcome)
	if err != nil {
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, StakeResponse{
		Staker:        req.Staker,
		Outcome:       string(outcome),
		Amount:        req.Amount,
		AmountDisplay: model.DisplayAmount(req.Amount),
		YesSupply:     event.YesSupply,
		NoSupply:      event.NoSupply,
	})
}

// HandleRedeem handles POST /api/v1/redeem.
func (s *Service) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Redeemer == "" {
		writeError(w, "redeemer is required", http.StatusBadRequest)
		return
	}
	outcome, err := model.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := s.Redeem(r.Context(), req.Redeemer, req.Creator, req.UniqueID, outcome)
	if err != nil {
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, RedeemResponse{
		Redeemer:   req.Redeemer,
		Gross:      receipt.Gross,
		Fee:        receipt.Fee,
		Net:        receipt.Net,
		NetDisplay: model.DisplayAmount(receipt.Net),
		Burned:     receipt.Burned,
	})
}

// HandleGetEvent handles GET /api/v1/events/{creator}/{uniqueID}.
func (s *Service) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	creator, uniqueID, ok := eventParams(w, r)
	if !ok {
		return
	}

	event, err := s.GetEvent(r.Context(), creator, uniqueID)
	if err != nil {
		writeError(w, "event not found", http.StatusNotFound)
		return
	}
	escrow, err := s.EscrowBalance(r.Context(), event)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{Event: *event, EscrowBalance: escrow})
}

// HandleListEvents handles GET /api/v1/events.
func (s *Service) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.ListEvents(r.Context())
	if err != nil {
		writeError(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	// Optional filter by ?status=active|resolved.
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []model.Event{}
		for _, e := range events {
			if e.Status == status {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	writeJSON(w, http.StatusOK, events)
}

// HandleGetTreasury handles GET /api/v1/treasury.
func (s *Service) HandleGetTreasury(w http.ResponseWriter, r *http.Request) {
	treasury, err := s.GetTreasury(r.Context())
	if err != nil {
		writeError(w, "treasury not initialized", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, treasury)
}

// HandleGetPositions handles GET /api/v1/positions/{account}.
func (s *Service) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	positions, err := s.Positions(r.Context(), account)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// --- Helpers ---

func eventParams(w http.ResponseWriter, r *http.Request) (string, uint64, bool) {
	creator := chi.URLParam(r, "creator")
	uniqueID, err := strconv.ParseUint(chi.URLParam(r, "uniqueID"), 10, 64)
	if err != nil {
		writeError(w, "invalid unique_id", http.StatusBadRequest)
		return "", 0, false
	}
	return creator, uniqueID, true
}

// errorStatus maps engine errors onto HTTP status codes so clients can tell
// "you lost" from "not resolved yet" from "nothing to claim".
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAmountTooLow):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEventExists),
		errors.Is(err, ErrNotActive),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrTooEarly),
		errors.Is(err, ErrNotResolved),
		errors.Is(err, ErrLost),
		errors.Is(err, ErrNothingToRedeem),
		errors.Is(err, settle.ErrNoWinnerSupply),
		errors.Is(err, settle.ErrPayoutTooSmall),
		errors.Is(err, settle.ErrOverflow),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
