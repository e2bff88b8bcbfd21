package product

import (
	"context"
	"net/http"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera do catálogo.
type ProductService interface {
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	LookupBarcode(ctx context.Context, barcode string) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, product domain.Product) (domain.Product, error)
	ListProducts(ctx context.Context, category domain.Category) ([]domain.Product, error)
}

// Handler agrupa todos os métodos de Handler de produtos.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Adiciona um produto ao catálogo
// @Tags products
// @Accept json
// @Produce json
// @Param product body domain.Product true "Produto"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Código de barras repetido"
// @Security ApiKeyAuth
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de produto por", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
	}

	var product domain.Product
	if err := respond.DecodeJSON(w, r, &product); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateProduct(ctx, product)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// GetProductByIDHandler lida com a requisição GET /v1/products/{id}.
// @Summary Obtém um produto por ID
// @Tags products
// @Produce json
// @Param id path string true "ID do Produto"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /products/{id} [get]
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetProductByID(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, product, err, http.StatusOK)
}

// LookupBarcodeHandler lida com a requisição GET /v1/products/barcode/{barcode}.
// Sem ID no resultado, o produto veio do catálogo externo e ainda não foi gravado.
// @Summary Procura um produto pelo código de barras
// @Tags products
// @Produce json
// @Param barcode path string true "Código de barras"
// @Success 200 {object} domain.Product
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /products/barcode/{barcode} [get]
func (h *Handler) LookupBarcodeHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.LookupBarcode(r.Context(), r.PathValue("barcode"))
	h.handleServiceResponse(w, r, product, err, http.StatusOK)
}

// ListProductsHandler lida com a requisição GET /v1/products?category=.
// @Summary Lista o catálogo
// @Tags products
// @Produce json
// @Param category query string false "Alimentar, Casa ou HigienePessoal"
// @Success 200 {array} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.ListProducts(r.Context(), domain.Category(r.URL.Query().Get("category")))
	h.handleServiceResponse(w, r, products, err, http.StatusOK)
}

// UpdateProductHandler lida com a requisição PUT /v1/products/{id}.
// @Summary Atualiza um produto
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "ID do Produto"
// @Param product body domain.Product true "Produto"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /products/{id} [put]
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := respond.DecodeJSON(w, r, &product); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	updated, err := h.Service.UpdateProduct(r.Context(), r.PathValue("id"), product)
	h.handleServiceResponse(w, r, updated, err, http.StatusOK)
}
