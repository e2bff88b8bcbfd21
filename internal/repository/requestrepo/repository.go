package requestrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"lojasocial/internal/domain"
	"lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// RequestRepository persiste o agregado Request (cabeçalho, itens e referências de reserva).
type RequestRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRequestRepository cria e retorna uma nova instância do Repositório de Pedidos.
func NewRequestRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RequestRepository {
	return &RequestRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const requestColumns = `id, user_id, status, submission_date, scheduled_pickup_date, rejection_reason, version, updated_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (domain.Request, error) {
	var (
		req       domain.Request
		scheduled sql.NullTime
		reason    sql.NullString
	)
	err := row.Scan(&req.ID, &req.UserID, &req.Status, &req.SubmissionDate, &scheduled, &reason, &req.Version, &req.UpdatedAt)
	if err != nil {
		return domain.Request{}, err
	}
	if scheduled.Valid {
		t := scheduled.Time
		req.ScheduledPickupDate = &t
	}
	if reason.Valid {
		s := reason.String
		req.RejectionReason = &s
	}
	return req, nil
}

// Create grava o pedido, os itens e as referências de reserva numa única transação.
func (r *RequestRepository) Create(ctx context.Context, req domain.Request) (domain.Request, error) {
	r.logger.Debug("Iniciando Create de pedido no repositório.", map[string]interface{}{"id": req.ID, "user_id": req.UserID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Request{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	req.Version = 1
	req.UpdatedAt = req.SubmissionDate

	_, err = tx.ExecContext(ctxTimeout, `
        INSERT INTO requests (id, user_id, status, submission_date, scheduled_pickup_date, rejection_reason, version, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.UserID, req.Status, req.SubmissionDate, req.ScheduledPickupDate, req.RejectionReason, req.Version, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir pedido.", err)
		return domain.Request{}, errors.NewDBError("Falha ao criar pedido", err)
	}

	for i, item := range req.Items {
		_, err = tx.ExecContext(ctxTimeout,
			`INSERT INTO request_items (request_id, position, product_id, quantity, category) VALUES ($1, $2, $3, $4, $5)`,
			req.ID, i, item.ProductID, item.Quantity, item.CategorySnapshot,
		)
		if err != nil {
			r.logger.Error("Falha ao inserir item do pedido.", err)
			return domain.Request{}, errors.NewDBError("Falha ao criar itens do pedido", err)
		}
	}

	for _, planID := range req.ReservationIDs {
		_, err = tx.ExecContext(ctxTimeout,
			`INSERT INTO request_reservations (request_id, reservation_id) VALUES ($1, $2)`, req.ID, planID)
		if err != nil {
			r.logger.Error("Falha ao associar reserva ao pedido.", err)
			return domain.Request{}, errors.NewDBError("Falha ao associar reservas", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Request{}, errors.NewDBError("Falha ao commitar pedido", err)
	}

	r.logger.Info("Pedido gravado.", map[string]interface{}{"id": req.ID, "items": len(req.Items)})
	return req, nil
}

// Get devolve o pedido completo.
func (r *RequestRepository) Get(ctx context.Context, id string) (domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return domain.Request{}, errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar pedido no DB.", err)
		return domain.Request{}, errors.NewDBError("Falha ao buscar pedido", err)
	}

	reqs := []domain.Request{req}
	if err := r.loadChildren(ctxTimeout, reqs); err != nil {
		return domain.Request{}, err
	}
	return reqs[0], nil
}

// ListByUser devolve os pedidos de um beneficiário, do mais recente para o mais antigo.
func (r *RequestRepository) ListByUser(ctx context.Context, userID string) ([]domain.Request, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE user_id = $1 ORDER BY submission_date DESC`, userID)
}

// ListByStatus devolve os pedidos num estado, por ordem de chegada.
func (r *RequestRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE status = $1 ORDER BY submission_date`, status)
}

func (r *RequestRepository) list(ctx context.Context, query string, arg interface{}) ([]domain.Request, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, arg)
	if err != nil {
		r.logger.Error("Falha ao listar pedidos.", err)
		return nil, errors.NewDBError("Falha ao listar pedidos", err)
	}
	defer rows.Close()

	reqs := []domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear pedido", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de pedidos", err)
	}

	if err := r.loadChildren(ctxTimeout, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// loadChildren preenche itens e reservas de vários pedidos com duas queries (ANY($1)).
func (r *RequestRepository) loadChildren(ctx context.Context, reqs []domain.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]string, len(reqs))
	index := make(map[string]int, len(reqs))
	for i, req := range reqs {
		ids[i] = req.ID
		index[req.ID] = i
		reqs[i].Items = []domain.RequestItemDetail{}
		reqs[i].ReservationIDs = []string{}
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT request_id, product_id, quantity, category FROM request_items WHERE request_id = ANY($1) ORDER BY request_id, position`,
		pq.Array(ids))
	if err != nil {
		return errors.NewDBError("Falha ao buscar itens dos pedidos", err)
	}
	for rows.Next() {
		var (
			requestID string
			item      domain.RequestItemDetail
		)
		if err := rows.Scan(&requestID, &item.ProductID, &item.Quantity, &item.CategorySnapshot); err != nil {
			rows.Close()
			return errors.NewDBError("Falha ao mapear item do pedido", err)
		}
		i := index[requestID]
		reqs[i].Items = append(reqs[i].Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.NewDBError("Erro após iteração de itens", err)
	}

	rows, err = r.DB.QueryContext(ctx,
		`SELECT request_id, reservation_id FROM request_reservations WHERE request_id = ANY($1) ORDER BY request_id, reservation_id`,
		pq.Array(ids))
	if err != nil {
		return errors.NewDBError("Falha ao buscar reservas dos pedidos", err)
	}
	defer rows.Close()
	for rows.Next() {
		var requestID, planID string
		if err := rows.Scan(&requestID, &planID); err != nil {
			return errors.NewDBError("Falha ao mapear reserva do pedido", err)
		}
		i := index[requestID]
		reqs[i].ReservationIDs = append(reqs[i].ReservationIDs, planID)
	}
	if err := rows.Err(); err != nil {
		return errors.NewDBError("Erro após iteração de reservas", err)
	}
	return nil
}

// CompareAndSwapStatus aplica a mudança apenas se o pedido ainda estiver em change.From
// com a versão esperada. Zero linhas afetadas significa NotFound ou InvalidTransition.
// ScheduledPickupDate e RejectionReason são gravados tal como vêm (valores finais).
func (r *RequestRepository) CompareAndSwapStatus(ctx context.Context, change domain.StatusChange, expectedVersion int) (domain.Request, error) {
	r.logger.Debug("CAS de estado do pedido.", map[string]interface{}{
		"id": change.RequestID, "from": change.From, "to": change.To, "version": expectedVersion,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE requests
        SET status = $1, scheduled_pickup_date = $2, rejection_reason = $3, version = version + 1, updated_at = $4
        WHERE id = $5 AND status = $6 AND version = $7
        RETURNING ` + requestColumns

	updated, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query,
		change.To, change.ScheduledPickupDate, change.RejectionReason, time.Now().UTC(),
		change.RequestID, change.From, expectedVersion,
	))
	if err == nil {
		return updated, nil
	}
	if err != sql.ErrNoRows {
		r.logger.Error("Falha no CAS de estado do pedido.", err)
		return domain.Request{}, errors.NewDBError("Falha ao atualizar estado do pedido", err)
	}

	var current domain.RequestStatus
	err = r.DB.QueryRowContext(ctxTimeout, `SELECT status FROM requests WHERE id = $1`, change.RequestID).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.Request{}, errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não encontrado.", change.RequestID))
	}
	if err != nil {
		return domain.Request{}, errors.NewDBError("Falha ao verificar estado do pedido", err)
	}

	r.logger.Warn("CAS falhou: o pedido mudou entretanto.", map[string]interface{}{
		"id": change.RequestID, "expected": change.From, "current": current,
	})
	return domain.Request{}, errors.NewInvalidTransitionError(string(current), string(change.To))
}
