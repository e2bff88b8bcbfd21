package campaignrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lojasocial/internal/domain"
	"lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// CampaignRepository implementa as operações CRUD de campanhas de recolha.
type CampaignRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCampaignRepository cria e retorna uma nova instância do Repositório de Campanhas.
func NewCampaignRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *CampaignRepository {
	return &CampaignRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const campaignColumns = `id, name, start_date, end_date, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (domain.Campaign, error) {
	var (
		c   domain.Campaign
		end sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.StartDate, &end, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Campaign{}, err
	}
	if end.Valid {
		t := end.Time
		c.EndDate = &t
	}
	return c, nil
}

// CreateCampaign insere uma nova campanha no banco de dados.
func (r *CampaignRepository) CreateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	r.logger.Debug("Iniciando CreateCampaign no repositório.", map[string]interface{}{"name": campaign.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	query := `
        INSERT INTO campaigns (id, name, start_date, end_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + campaignColumns

	created, err := scanCampaign(r.DB.QueryRowContext(ctxTimeout, query,
		campaign.ID, campaign.Name, campaign.StartDate, campaign.EndDate, campaign.CreatedAt, campaign.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir campanha no DB.", err)
		return domain.Campaign{}, errors.NewDBError("Falha ao criar campanha", err)
	}

	r.logger.Info("Campanha criada com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// GetCampaignByID busca uma campanha pelo ID.
func (r *CampaignRepository) GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		r.logger.Info("Campanha não encontrada.", map[string]interface{}{"id": id})
		return domain.Campaign{}, errors.NewNotFoundError(fmt.Sprintf("Campanha com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar campanha no DB.", err)
		return domain.Campaign{}, errors.NewDBError("Falha ao buscar campanha", err)
	}
	return campaign, nil
}

// GetAllCampaigns busca todas as campanhas, das mais recentes para as mais antigas.
func (r *CampaignRepository) GetAllCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY start_date DESC, name`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao executar GetAllCampaigns query.", err)
		return nil, errors.NewDBError("Falha ao buscar todas as campanhas", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear campanha na iteração de GetAllCampaigns.", err)
			return nil, errors.NewDBError("Falha ao mapear campanhas do DB", err)
		}
		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de campanhas.", err)
		return nil, errors.NewDBError("Erro após iteração de campanhas", err)
	}

	r.logger.Debug("GetAllCampaigns concluído.", map[string]interface{}{"total": len(campaigns)})
	return campaigns, nil
}

// UpdateCampaign atualiza uma campanha existente.
func (r *CampaignRepository) UpdateCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE campaigns
        SET name = $1, start_date = $2, end_date = $3, updated_at = $4
        WHERE id = $5
        RETURNING ` + campaignColumns

	updated, err := scanCampaign(r.DB.QueryRowContext(ctxTimeout, query,
		campaign.Name, campaign.StartDate, campaign.EndDate, time.Now().UTC(), campaign.ID,
	))
	if err == sql.ErrNoRows {
		return domain.Campaign{}, errors.NewNotFoundError(fmt.Sprintf("Campanha com ID %s não encontrada para atualização.", campaign.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar campanha no DB.", err)
		return domain.Campaign{}, errors.NewDBError("Falha ao atualizar campanha", err)
	}

	r.logger.Info("Campanha atualizada com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// DeleteCampaign remove uma campanha. Os lotes associados ficam sem campanha (ON DELETE SET NULL).
func (r *CampaignRepository) DeleteCampaign(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar campanha do DB.", err)
		return errors.NewDBError("Falha ao deletar campanha", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Campanha com ID %s não encontrada para exclusão.", id))
	}

	r.logger.Info("Campanha deletada com sucesso.", map[string]interface{}{"id": id})
	return nil
}
