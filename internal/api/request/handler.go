package request

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/middleware"
)

// RequestService define o contrato que o Handler espera da camada de Serviço.
type RequestService interface {
	Submit(ctx context.Context, userID string, items []domain.CartItem) (domain.Request, error)
	Accept(ctx context.Context, id string, scheduledDate *time.Time) (domain.Request, error)
	Reject(ctx context.Context, id, reason string) (domain.Request, error)
	Complete(ctx context.Context, id string) (domain.Request, error)
	Cancel(ctx context.Context, id, requestedBy string) (domain.Request, error)
	ReschedulePickup(ctx context.Context, id string, scheduledDate time.Time) (domain.Request, error)
	GetForUser(ctx context.Context, id, userID string, role domain.UserRole) (domain.Request, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Request, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error)
}

// Handler agrupa todos os métodos de Handler de pedidos.
type Handler struct {
	Service RequestService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc RequestService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// --- DTOs ---

// SubmitItem é uma linha do carrinho no payload de submissão.
type SubmitItem struct {
	ProductID string `json:"productId" example:"3c95b8c8-1d7e-4a59-9a43-2f1f0f6a1b11"`
	Quantity  int    `json:"quantity" example:"2"`
}

// SubmitRequest é o payload de POST /v1/requests.
type SubmitRequest struct {
	UserID string       `json:"userId"`
	Items  []SubmitItem `json:"items"`
}

// SubmitResponse é a resposta 201 da submissão.
type SubmitResponse struct {
	RequestID string `json:"requestId"`
}

// ScheduleRequest é o payload de accept e reschedule. Aceita RFC3339 ou AAAA-MM-DD.
// Em accept a data é opcional; em reschedule é obrigatória.
type ScheduleRequest struct {
	ScheduledDate string `json:"scheduledDate,omitempty" example:"2025-01-15"`
}

// RejectRequest é o payload de reject.
type RejectRequest struct {
	Reason string `json:"reason" example:"Documentação em falta"`
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.NewValidationError("scheduledDate deve estar no formato RFC3339 ou AAAA-MM-DD.")
}

// --- Handlers ---

// SubmitHandler lida com a requisição POST /v1/requests.
// @Summary Submete um pedido
// @Description Reserva stock (FEFO) para cada produto do carrinho e cria o pedido em Submitted. Tudo ou nada.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Carrinho"
// @Success 201 {object} SubmitResponse
// @Failure 400 {object} domain.ErrorResponse "EMPTY_CART, CAP_EXCEEDED ou VALIDATION_ERROR"
// @Failure 409 {object} domain.ErrorResponse "INSUFFICIENT_STOCK"
// @Security ApiKeyAuth
// @Router /requests [post]
func (h *Handler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := middleware.GetUserClaimsFromContext(ctx)

	var body SubmitRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	// Um beneficiário só submete em nome próprio; a equipa pode submeter por outro utilizador.
	userID := body.UserID
	if userID == "" {
		userID = claims.UserID
	}
	if !claims.Role.IsStaff() && userID != claims.UserID {
		h.handleServiceResponse(w, r, nil, apperror.NewForbiddenError("Não pode submeter pedidos em nome de outro utilizador."), http.StatusOK)
		return
	}

	items := make([]domain.CartItem, len(body.Items))
	for i, it := range body.Items {
		items[i] = domain.CartItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	req, err := h.Service.Submit(ctx, userID, items)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, SubmitResponse{RequestID: req.ID}, nil, http.StatusCreated)
}

// GetHandler lida com a requisição GET /v1/requests/{id}.
// @Summary Obtém um pedido
// @Tags requests
// @Produce json
// @Param id path string true "ID do Pedido"
// @Success 200 {object} domain.Request
// @Failure 403 {object} domain.ErrorResponse "NOT_OWNER"
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /requests/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := middleware.GetUserClaimsFromContext(ctx)

	req, err := h.Service.GetForUser(ctx, r.PathValue("id"), claims.UserID, claims.Role)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// ListHandler lida com a requisição GET /v1/requests?status=.
// A equipa vê a fila por estado; o beneficiário vê apenas os seus pedidos.
// @Summary Lista pedidos
// @Tags requests
// @Produce json
// @Param status query string false "Estado (Submitted, PendingPickup, Completed, Rejected, Cancelled) ou código legado 0-3"
// @Success 200 {array} domain.Request
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /requests [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := middleware.GetUserClaimsFromContext(ctx)
	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	if !claims.Role.IsStaff() {
		reqs, err := h.Service.ListByUser(ctx, claims.UserID)
		if err == nil && status != "" {
			reqs = filterByStatus(reqs, status)
		}
		h.handleServiceResponse(w, r, reqs, err, http.StatusOK)
		return
	}

	if status == "" {
		status = domain.StatusSubmitted
	}
	reqs, err := h.Service.ListByStatus(ctx, status)
	h.handleServiceResponse(w, r, reqs, err, http.StatusOK)
}

// parseStatus aceita o nome do estado ou o código numérico legado (0-3).
func parseStatus(raw string) (domain.RequestStatus, error) {
	if raw == "" {
		return "", nil
	}
	if code, err := strconv.Atoi(raw); err == nil {
		if status, ok := domain.StatusFromCode(code); ok {
			return status, nil
		}
	} else if status := domain.RequestStatus(raw); status.Valid() {
		return status, nil
	}
	return "", apperror.NewValidationError(fmt.Sprintf("Estado inválido: %s.", raw))
}

func filterByStatus(reqs []domain.Request, status domain.RequestStatus) []domain.Request {
	out := make([]domain.Request, 0, len(reqs))
	for _, req := range reqs {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out
}

// AcceptHandler lida com a requisição POST /v1/requests/{id}/accept.
// @Summary Aceita um pedido e marca o levantamento
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "ID do Pedido"
// @Param body body ScheduleRequest false "Data de levantamento (opcional)"
// @Success 200 {object} domain.Request
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "INVALID_TRANSITION"
// @Security ApiKeyAuth
// @Router /requests/{id}/accept [post]
func (h *Handler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	var body ScheduleRequest
	if err := respond.DecodeOptionalJSON(w, r, &body); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	var date *time.Time
	if strings.TrimSpace(body.ScheduledDate) != "" {
		parsed, err := parseDate(body.ScheduledDate)
		if err != nil {
			h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
			return
		}
		date = &parsed
	}

	req, err := h.Service.Accept(r.Context(), r.PathValue("id"), date)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// RescheduleHandler lida com a requisição POST /v1/requests/{id}/reschedule.
// @Summary Altera a data de levantamento de um pedido aceite
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "ID do Pedido"
// @Param body body ScheduleRequest true "Nova data"
// @Success 200 {object} domain.Request
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "INVALID_TRANSITION"
// @Security ApiKeyAuth
// @Router /requests/{id}/reschedule [post]
func (h *Handler) RescheduleHandler(w http.ResponseWriter, r *http.Request) {
	var body ScheduleRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}
	date, err := parseDate(body.ScheduledDate)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	req, err := h.Service.ReschedulePickup(r.Context(), r.PathValue("id"), date)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// RejectHandler lida com a requisição POST /v1/requests/{id}/reject.
// @Summary Recusa um pedido
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "ID do Pedido"
// @Param body body RejectRequest true "Motivo"
// @Success 200 {object} domain.Request
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "INVALID_TRANSITION"
// @Security ApiKeyAuth
// @Router /requests/{id}/reject [post]
func (h *Handler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	var body RejectRequest
	if err := respond.DecodeJSON(w, r, &body); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	req, err := h.Service.Reject(r.Context(), r.PathValue("id"), body.Reason)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// CompleteHandler lida com a requisição POST /v1/requests/{id}/complete.
// @Summary Regista o levantamento
// @Tags requests
// @Produce json
// @Param id path string true "ID do Pedido"
// @Success 200 {object} domain.Request
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "INVALID_TRANSITION"
// @Failure 500 {object} domain.ErrorResponse "INVARIANT_VIOLATION"
// @Security ApiKeyAuth
// @Router /requests/{id}/complete [post]
func (h *Handler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Complete(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}

// CancelHandler lida com a requisição POST /v1/requests/{id}/cancel.
// @Summary Cancela um pedido (só o autor)
// @Tags requests
// @Produce json
// @Param id path string true "ID do Pedido"
// @Success 200 {object} domain.Request
// @Failure 403 {object} domain.ErrorResponse "NOT_OWNER"
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "INVALID_TRANSITION"
// @Security ApiKeyAuth
// @Router /requests/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := middleware.GetUserClaimsFromContext(ctx)

	req, err := h.Service.Cancel(ctx, r.PathValue("id"), claims.UserID)
	h.handleServiceResponse(w, r, req, err, http.StatusOK)
}
