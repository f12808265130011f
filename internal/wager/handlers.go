package wager

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/auth"
	"github.com/omflip/flip-engine/internal/model"
	"github.com/omflip/flip-engine/internal/pool"
	"github.com/omflip/flip-engine/internal/store"
)

// FlipRequest is the body of POST /api/v1/flip.
type FlipRequest struct {
	Sender string       `json:"sender"`
	Side   model.Side   `json:"side"`
	Funds  []model.Coin `json:"funds"`
}

// SenderRequest is the body of endpoints that only need a caller identity
// plus attached funds: claim, deposit, pause, unpause, admin acceptance.
type SenderRequest struct {
	Sender string       `json:"sender"`
	Funds  []model.Coin `json:"funds"`
}

// WithdrawRequest is the body of POST /api/v1/pool/withdraw. A nil amount
// withdraws everything available; an empty recipient pays the sender.
type WithdrawRequest struct {
	Sender    string           `json:"sender"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Recipient string           `json:"recipient,omitempty"`
	Funds     []model.Coin     `json:"funds"`
}

// UpdateConfigRequest is the body of POST /api/v1/admin/config.
type UpdateConfigRequest struct {
	Sender string       `json:"sender"`
	Update ConfigUpdate `json:"update"`
	Funds  []model.Coin `json:"funds"`
}

// --- HTTP Handlers ---

// HandleFlip handles POST /api/v1/flip
func (s *Service) HandleFlip(w http.ResponseWriter, r *http.Request) {
	var req FlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := model.ValidateAddress(req.Sender); err != nil {
		writeFailure(w, err)
		return
	}

	res, err := s.Flip(r.Context(), req.Sender, req.Side, req.Funds)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleClaim handles POST /api/v1/claim
func (s *Service) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := model.ValidateAddress(req.Sender); err != nil {
		writeFailure(w, err)
		return
	}

	res, err := s.Claim(r.Context(), req.Sender, req.Funds)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDeposit handles POST /api/v1/pool/deposit
func (s *Service) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Deposit(r.Context(), req.Sender, req.Funds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deposited"})
}

// HandleWithdraw handles POST /api/v1/pool/withdraw
func (s *Service) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.Withdraw(r.Context(), req.Sender, req.Amount, req.Recipient, req.Funds)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAcceptAdmin handles POST /api/v1/admin/accept
func (s *Service) HandleAcceptAdmin(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.AcceptAdminRole(r.Context(), req.Sender, req.Funds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// HandleUpdateConfig handles POST /api/v1/admin/config
func (s *Service) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.UpdateConfig(r.Context(), req.Sender, req.Update, req.Funds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandlePause handles POST /api/v1/admin/pause
func (s *Service) HandlePause(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Pause(r.Context(), req.Sender, req.Funds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// HandleUnpause handles POST /api/v1/admin/unpause
func (s *Service) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Unpause(r.Context(), req.Sender, req.Funds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unpaused"})
}

// HandleConfig handles GET /api/v1/config
func (s *Service) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Config(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandlePool handles GET /api/v1/pool
func (s *Service) HandlePool(w http.ResponseWriter, r *http.Request) {
	view, err := s.Pool(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleAvailable handles GET /api/v1/pool/available
func (s *Service) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	amount, err := s.AvailableToWithdraw(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"available_to_withdraw": amount})
}

// HandleUser handles GET /api/v1/users/{address}
func (s *Service) HandleUser(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	user, err := s.User(r.Context(), address)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUsers handles GET /api/v1/users?start_after=&limit=
func (s *Service) HandleUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	users, err := s.Users(r.Context(), r.URL.Query().Get("start_after"), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// HandleUserFlips handles GET /api/v1/users/{address}/flips?limit=
func (s *Service) HandleUserFlips(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	flips, err := s.UserFlips(r.Context(), address, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flips": flips})
}

// --- Response helpers ---

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

// writeFailure maps a service error to an HTTP status and writes it with
// its taxonomy kind so clients can branch on cause.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrPaused),
		errors.Is(err, ErrCooldown),
		errors.Is(err, ErrTransferDeadline),
		errors.Is(err, ErrNotEnoughLiquidity):
		status = http.StatusConflict
	case errors.Is(err, store.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.Is(err, pool.ErrInvariantViolated),
		errors.Is(err, pool.ErrNegativeDeposited),
		errors.Is(err, pool.ErrNegativeBalance):
		status = http.StatusInternalServerError
	case Kind(err) == KindValidation:
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  Kind(err),
	})
}
