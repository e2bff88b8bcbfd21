package campaign

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/middleware"
)

// CampaignService define o contrato que o Handler espera da camada de serviço.
type CampaignService interface {
	CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error)
	GetAllCampaigns(ctx context.Context, activeOnly bool, now time.Time) ([]domain.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// Handler agrupa todos os métodos de Handler de campanhas.
type Handler struct {
	Service CampaignService
	Logger  logger.Logger
	now     func() time.Time
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc CampaignService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateCampaignHandler lida com a requisição POST /v1/campaigns.
// @Summary Cria uma nova campanha
// @Description Cria uma campanha de recolha à qual os lotes recebidos podem ficar associados.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaign body domain.Campaign true "Dados da campanha"
// @Success 201 {object} domain.Campaign "Campanha criada com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido ou erro de validação"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Security ApiKeyAuth
// @Router /campaigns [post]
func (h *Handler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de campanha por", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
	}

	var campaign domain.Campaign
	if err := respond.DecodeJSON(w, r, &campaign); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateCampaign(ctx, campaign)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// GetCampaignByIDHandler lida com a requisição GET /v1/campaigns/{id}.
// @Summary Obtém uma campanha por ID
// @Tags campaigns
// @Produce json
// @Param id path string true "ID da Campanha"
// @Success 200 {object} domain.Campaign
// @Failure 400 {object} domain.ErrorResponse "ID inválido"
// @Failure 404 {object} domain.ErrorResponse "Campanha não encontrada"
// @Security ApiKeyAuth
// @Router /campaigns/{id} [get]
func (h *Handler) GetCampaignByIDHandler(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.Service.GetCampaignByID(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, campaign, err, http.StatusOK)
}

// GetAllCampaignsHandler lida com a requisição GET /v1/campaigns?active=true.
// @Summary Lista campanhas
// @Tags campaigns
// @Produce json
// @Param active query bool false "Apenas campanhas a decorrer"
// @Success 200 {array} domain.Campaign
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /campaigns [get]
func (h *Handler) GetAllCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("active deve ser true ou false."), http.StatusBadRequest)
			return
		}
		activeOnly = v
	}

	campaigns, err := h.Service.GetAllCampaigns(r.Context(), activeOnly, h.now())
	h.handleServiceResponse(w, r, campaigns, err, http.StatusOK)
}

// UpdateCampaignHandler lida com a requisição PUT /v1/campaigns/{id}.
// @Summary Atualiza uma campanha
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "ID da Campanha"
// @Param campaign body domain.Campaign true "Dados da campanha para atualização"
// @Success 200 {object} domain.Campaign "Campanha atualizada com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Campanha não encontrada"
// @Security ApiKeyAuth
// @Router /campaigns/{id} [put]
func (h *Handler) UpdateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var campaign domain.Campaign
	if err := respond.DecodeJSON(w, r, &campaign); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusBadRequest)
		return
	}
	campaign.ID = r.PathValue("id")

	updated, err := h.Service.UpdateCampaign(r.Context(), campaign)
	h.handleServiceResponse(w, r, updated, err, http.StatusOK)
}

// DeleteCampaignHandler lida com a requisição DELETE /v1/campaigns/{id}.
// @Summary Deleta uma campanha
// @Description Remove a campanha. Os lotes associados ficam sem campanha.
// @Tags campaigns
// @Param id path string true "ID da Campanha"
// @Success 204 "Nenhum conteúdo"
// @Failure 404 {object} domain.ErrorResponse "Campanha não encontrada"
// @Security ApiKeyAuth
// @Router /campaigns/{id} [delete]
func (h *Handler) DeleteCampaignHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteCampaign(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}
