package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/internal/services/tokens"
)

// TokenHandler serves stored payment token management.
type TokenHandler struct {
	tokens *tokens.Service
	logger *zap.Logger
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(tokenSvc *tokens.Service, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokenSvc, logger: logger}
}

type tokenView struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	LastFour  string `json:"last_four"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	CreatedAt string `json:"created_at"`
}

// HandleList lists a customer's stored tokens.
// GET /api/v1/customers/{customerID}/tokens
func (h *TokenHandler) HandleList(w http.ResponseWriter, r *http.Request, customerID string) {
	list, err := h.tokens.List(r.Context(), customerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	views := make([]tokenView, 0, len(list))
	for _, t := range list {
		views = append(views, tokenView{
			ID:        t.ID,
			Brand:     t.Brand,
			LastFour:  t.LastFour,
			ExpMonth:  t.ExpMonth,
			ExpYear:   t.ExpYear,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: views})
}

// HandleDelete removes a stored token at the processor and locally.
// DELETE /api/v1/customers/{customerID}/tokens/{tokenID}
func (h *TokenHandler) HandleDelete(w http.ResponseWriter, r *http.Request, customerID, tokenID string) {
	if err := h.tokens.Remove(r.Context(), customerID, tokenID); err != nil {
		h.logger.Warn("token removal failed",
			zap.String("customer_id", customerID),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]bool{"deleted": true}})
}
