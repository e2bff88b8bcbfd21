package stock

import (
	"context"
	"net/http"
	"strconv"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// StockService define o contrato que o Handler espera do Stock Ledger.
type StockService interface {
	ReceiveStock(ctx context.Context, intake domain.StockIntake) (domain.StockItem, error)
	Availability(ctx context.Context, productID string) (domain.ProductAvailability, error)
	GetStockItem(ctx context.Context, id string) (domain.StockItem, error)
}

// ExpiryScanner define o contrato do scanner de validades.
type ExpiryScanner interface {
	Scan(ctx context.Context, days int) ([]domain.ExpiringItemWithProduct, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Expiry  ExpiryScanner
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Services e o Logger.
func NewHandler(svc StockService, expiry ExpiryScanner, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Expiry:  expiry,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// ExpiringHandler lida com a requisição GET /v1/stock/expiring?days=3.
// @Summary Lotes perto da validade
// @Description Lotes com stock disponível a expirar nos próximos N dias, com o produto. Sem days usa o valor configurado.
// @Tags stock
// @Produce json
// @Param days query int false "Janela em dias" default(3)
// @Success 200 {array} domain.ExpiringItemWithProduct
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/expiring [get]
func (h *Handler) ExpiringHandler(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("days deve ser um inteiro não negativo."), http.StatusBadRequest)
			return
		}
		days = n
	}

	items, err := h.Expiry.Scan(r.Context(), days)
	h.handleServiceResponse(w, r, items, err, http.StatusOK)
}

// ReceiveStockHandler lida com a requisição POST /v1/stock/items.
// @Summary Regista a entrada de um lote
// @Tags stock
// @Accept json
// @Produce json
// @Param intake body domain.StockIntake true "Lote recebido"
// @Success 201 {object} domain.StockItem
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "Produto ou campanha inexistente"
// @Security ApiKeyAuth
// @Router /stock/items [post]
func (h *Handler) ReceiveStockHandler(w http.ResponseWriter, r *http.Request) {
	var intake domain.StockIntake
	if err := respond.DecodeJSON(w, r, &intake); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	item, err := h.Service.ReceiveStock(r.Context(), intake)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, item, nil, http.StatusCreated)
}

// GetStockItemHandler lida com a requisição GET /v1/stock/items/{id}.
// @Summary Obtém um lote
// @Tags stock
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {object} domain.StockItem
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/items/{id} [get]
func (h *Handler) GetStockItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetStockItem(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, item, err, http.StatusOK)
}

// AvailabilityHandler lida com a requisição GET /v1/stock/products/{productId}/availability.
// @Summary Stock disponível de um produto
// @Tags stock
// @Produce json
// @Param productId path string true "ID do produto"
// @Success 200 {object} domain.ProductAvailability
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /stock/products/{productId}/availability [get]
func (h *Handler) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	av, err := h.Service.Availability(r.Context(), r.PathValue("productId"))
	h.handleServiceResponse(w, r, av, err, http.StatusOK)
}
