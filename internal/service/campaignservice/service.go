package campaignservice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// CampaignRepository define o contrato que o Serviço de Campanhas espera da camada de Persistência.
type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error)
	GetAllCampaigns(ctx context.Context) ([]domain.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// Service gere as campanhas de recolha de donativos.
type Service struct {
	repo   CampaignRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Campanhas.
func NewService(repo CampaignRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateCampaign cria uma nova campanha após validações de negócio.
func (s *Service) CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	s.logger.Debug("Iniciando criação de campanha no serviço.", map[string]interface{}{"name": campaign.Name})

	if err := validateCampaign(campaign); err != nil {
		s.logger.Warn("Falha na validação da campanha.", map[string]interface{}{"name": campaign.Name, "error": err.Error()})
		return domain.Campaign{}, err
	}

	created, err := s.repo.CreateCampaign(ctx, campaign)
	if err != nil {
		s.logger.Error("Falha ao criar campanha no repositório.", err)
		return domain.Campaign{}, apperror.NewInternalError("Falha interna ao criar campanha.", err)
	}

	s.logger.Info("Campanha criada com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// GetCampaignByID busca uma campanha pelo ID após validações de formato.
func (s *Service) GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Campaign{}, apperror.NewValidationError("O ID da campanha deve ser um UUID válido.")
	}

	campaign, err := s.repo.GetCampaignByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, err // Erros do repositório já são NotFoundError ou DBError
	}
	return campaign, nil
}

// GetAllCampaigns busca todas as campanhas. Com activeOnly filtra as que decorrem em now.
func (s *Service) GetAllCampaigns(ctx context.Context, activeOnly bool, now time.Time) ([]domain.Campaign, error) {
	campaigns, err := s.repo.GetAllCampaigns(ctx)
	if err != nil {
		s.logger.Error("Falha ao buscar campanhas no repositório.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar campanhas.", err)
	}
	if !activeOnly {
		return campaigns, nil
	}

	active := make([]domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.IsActive(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

// UpdateCampaign atualiza uma campanha existente.
func (s *Service) UpdateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	s.logger.Debug("Iniciando atualização de campanha no serviço.", map[string]interface{}{"id": campaign.ID})

	if _, err := uuid.Parse(campaign.ID); err != nil {
		return domain.Campaign{}, apperror.NewValidationError("O ID da campanha deve ser um UUID válido.")
	}
	if err := validateCampaign(campaign); err != nil {
		return domain.Campaign{}, err
	}

	updated, err := s.repo.UpdateCampaign(ctx, campaign)
	if err != nil {
		s.logger.Error("Falha ao atualizar campanha no repositório.", err)
		return domain.Campaign{}, err
	}

	s.logger.Info("Campanha atualizada com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// DeleteCampaign remove uma campanha.
func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID da campanha deve ser um UUID válido.")
	}

	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		s.logger.Error("Falha ao remover campanha no repositório.", err)
		return err
	}

	s.logger.Info("Campanha removida.", map[string]interface{}{"id": id})
	return nil
}

func validateCampaign(c domain.Campaign) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return apperror.NewValidationError("O nome da campanha não pode ser vazio.")
	}
	if len(name) < 3 || len(name) > 100 {
		return apperror.NewValidationError("O nome da campanha deve ter entre 3 e 100 caracteres.")
	}
	if c.StartDate.IsZero() {
		return apperror.NewValidationError("A data de início da campanha é obrigatória.")
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return apperror.NewValidationError("A data de fim não pode ser anterior à data de início.")
	}
	return nil
}
