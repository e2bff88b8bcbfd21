package stockrepo

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lojasocial/internal/domain"
	"lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// StockRepository é o dono exclusivo dos contadores quantity/reserved_quantity.
// Cada operação de escrita corre numa única transação SQL.
type StockRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Stock.
func NewStockRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const stockItemColumns = `id, barcode, product_id, campaign_id, quantity, reserved_quantity, expiration_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStockItem(row rowScanner) (domain.StockItem, error) {
	var (
		item       domain.StockItem
		campaignID sql.NullString
		expiration sql.NullTime
	)
	err := row.Scan(
		&item.ID, &item.Barcode, &item.ProductID, &campaignID, &item.Quantity,
		&item.ReservedQuantity, &expiration, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.StockItem{}, err
	}
	if campaignID.Valid {
		item.CampaignID = &campaignID.String
	}
	if expiration.Valid {
		t := expiration.Time
		item.ExpirationDate = &t
	}
	return item, nil
}

// CreateStockItem regista um novo lote (entrada de stock).
func (r *StockRepository) CreateStockItem(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	r.logger.Debug("Iniciando CreateStockItem no repositório.", map[string]interface{}{"product_id": item.ProductID, "quantity": item.Quantity})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.ReservedQuantity = 0

	query := `
        INSERT INTO stock_items (id, barcode, product_id, campaign_id, quantity, reserved_quantity, expiration_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
        RETURNING ` + stockItemColumns

	created, err := scanStockItem(r.DB.QueryRowContext(ctxTimeout, query,
		item.ID, item.Barcode, item.ProductID, item.CampaignID, item.Quantity,
		item.ExpirationDate, item.CreatedAt, item.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir lote no DB.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao criar lote", err)
	}

	r.logger.Info("Lote criado com sucesso.", map[string]interface{}{"id": created.ID, "product_id": created.ProductID, "quantity": created.Quantity})
	return created, nil
}

// GetStockItem busca um lote pelo ID.
func (r *StockRepository) GetStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1`

	item, err := scanStockItem(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.StockItem{}, errors.NewNotFoundError(fmt.Sprintf("Lote com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar lote no DB.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao buscar lote", err)
	}
	return item, nil
}

// Reserve bloqueia os lotes válidos do produto (FOR UPDATE, por ordem de id), escolhe-os
// por FEFO e incrementa reserved_quantity. Se o disponível não chega, nada é reservado.
func (r *StockRepository) Reserve(ctx context.Context, productID string, quantity int, now time.Time) (domain.ReservationPlan, error) {
	r.logger.Debug("Iniciando reserva no repositório.", map[string]interface{}{"product_id": productID, "quantity": quantity})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de reserva.", err)
		return domain.ReservationPlan{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	query := `
        SELECT ` + stockItemColumns + `
        FROM stock_items
        WHERE product_id = $1
          AND quantity > reserved_quantity
          AND (expiration_date IS NULL OR expiration_date >= $2)
        ORDER BY id
        FOR UPDATE`

	rows, err := tx.QueryContext(ctxTimeout, query, productID, now)
	if err != nil {
		r.logger.Error("Falha ao bloquear lotes para reserva.", err)
		return domain.ReservationPlan{}, errors.NewDBError("Falha ao bloquear lotes", err)
	}
	var batches []domain.StockItem
	for rows.Next() {
		item, scanErr := scanStockItem(rows)
		if scanErr != nil {
			rows.Close()
			return domain.ReservationPlan{}, errors.NewDBError("Falha ao mapear lote", scanErr)
		}
		batches = append(batches, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.ReservationPlan{}, errors.NewDBError("Erro após iteração de lotes", err)
	}

	lines, available, ok := domain.AllocateFEFO(batches, quantity, now)
	if !ok {
		r.logger.Info("Stock insuficiente para reserva.", map[string]interface{}{"product_id": productID, "requested": quantity, "available": available})
		return domain.ReservationPlan{}, errors.NewInsufficientStockError(productID, quantity, available)
	}

	byID := make(map[string]*domain.StockItem, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}
	for _, line := range lines {
		item := byID[line.StockItemID]
		if err := domain.ApplyReserve(item, line.Quantity); err != nil {
			return domain.ReservationPlan{}, errors.NewInvariantViolationError(err.Error())
		}
		if err := updateCounters(ctxTimeout, tx, *item, now); err != nil {
			r.logger.Error("Falha ao atualizar reserved_quantity.", err)
			return domain.ReservationPlan{}, err
		}
	}

	plan := domain.ReservationPlan{
		ID:        uuid.New().String(),
		ProductID: productID,
		Quantity:  quantity,
		Status:    domain.ReservationHeld,
		Lines:     lines,
		CreatedAt: now,
	}
	if err := insertPlan(ctxTimeout, tx, plan); err != nil {
		r.logger.Error("Falha ao gravar plano de reserva.", err)
		return domain.ReservationPlan{}, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de reserva.", err)
		return domain.ReservationPlan{}, errors.NewDBError("Falha ao commitar reserva", err)
	}

	r.logger.Info("Reserva criada.", map[string]interface{}{"plan_id": plan.ID, "product_id": productID, "quantity": quantity, "batches": len(lines)})
	return plan, nil
}

// Release devolve as quantidades reservadas. Um plano que já não está "held" é um no-op
// (released == false).
func (r *StockRepository) Release(ctx context.Context, planID string, now time.Time) (released bool, err error) {
	n, err := r.settle(ctx, []string{planID}, domain.ReservationReleased, now)
	return n > 0, err
}

// Commit consome fisicamente o plano (quantity e reserved_quantity descem).
// Commit de um plano já consumido é um no-op; de um plano libertado é InvariantViolation.
func (r *StockRepository) Commit(ctx context.Context, planID string, now time.Time) (committed bool, err error) {
	n, err := r.settle(ctx, []string{planID}, domain.ReservationCommitted, now)
	return n > 0, err
}

// CommitAll consome vários planos numa só transação: ou todos ficam committed, ou nenhum.
// Devolve quantos planos mudaram de estado (os já consumidos não contam).
func (r *StockRepository) CommitAll(ctx context.Context, planIDs []string, now time.Time) (int, error) {
	return r.settle(ctx, planIDs, domain.ReservationCommitted, now)
}

func (r *StockRepository) settle(ctx context.Context, planIDs []string, target domain.ReservationStatus, now time.Time) (int, error) {
	r.logger.Debug("Iniciando fecho de planos de reserva.", map[string]interface{}{"plan_ids": planIDs, "target": target})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return 0, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	// Ordem fixa de bloqueio entre transações concorrentes.
	ordered := append([]string(nil), planIDs...)
	sort.Strings(ordered)

	changed := 0
	for _, planID := range ordered {
		ok, err := r.settlePlan(ctxTimeout, tx, planID, target, now)
		if err != nil {
			return 0, err
		}
		if ok {
			changed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewDBError("Falha ao commitar fecho do plano", err)
	}

	if changed > 0 {
		r.logger.Info("Planos de reserva fechados.", map[string]interface{}{"plan_ids": ordered, "status": target, "changed": changed})
	}
	return changed, nil
}

// settlePlan fecha um plano dentro de tx. false significa que não havia nada a fazer.
func (r *StockRepository) settlePlan(ctx context.Context, tx *sql.Tx, planID string, target domain.ReservationStatus, now time.Time) (bool, error) {
	var status domain.ReservationStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE id = $1 FOR UPDATE`, planID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return false, errors.NewNotFoundError(fmt.Sprintf("Plano de reserva %s não encontrado.", planID))
	}
	if err != nil {
		return false, errors.NewDBError("Falha ao bloquear plano de reserva", err)
	}

	switch {
	case status == target:
		r.logger.Debug("Plano já se encontra no estado pedido. Nada a fazer.", map[string]interface{}{"plan_id": planID, "status": status})
		return false, nil
	case status == domain.ReservationCommitted && target == domain.ReservationReleased:
		// Libertar depois de consumir não tem efeito nos contadores.
		return false, nil
	case status == domain.ReservationReleased && target == domain.ReservationCommitted:
		msg := fmt.Sprintf("commit do plano %s que já foi libertado", planID)
		r.logger.Error("Violação de invariante no ledger.", stderrors.New(msg))
		return false, errors.NewInvariantViolationError(msg)
	}

	lines, err := loadLines(ctx, tx, planID)
	if err != nil {
		return false, err
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.StockItemID)
	}
	items, err := lockItems(ctx, tx, ids)
	if err != nil {
		return false, err
	}

	apply := domain.ApplyRelease
	if target == domain.ReservationCommitted {
		apply = domain.ApplyCommit
	}
	for _, line := range lines {
		item, ok := items[line.StockItemID]
		if !ok {
			msg := fmt.Sprintf("lote %s do plano %s não existe", line.StockItemID, planID)
			return false, errors.NewInvariantViolationError(msg)
		}
		if err := apply(item, line.Quantity); err != nil {
			r.logger.Error("Violação de invariante no ledger.", err)
			return false, errors.NewInvariantViolationError(err.Error())
		}
	}
	for _, id := range ids {
		if err := updateCounters(ctx, tx, *items[id], now); err != nil {
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`, target, now, planID,
	); err != nil {
		return false, errors.NewDBError("Falha ao atualizar estado do plano", err)
	}
	return true, nil
}

// GetPlan devolve um plano de reserva com as suas linhas.
func (r *StockRepository) GetPlan(ctx context.Context, planID string) (domain.ReservationPlan, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var plan domain.ReservationPlan
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT id, product_id, quantity, status, created_at FROM reservations WHERE id = $1`, planID,
	).Scan(&plan.ID, &plan.ProductID, &plan.Quantity, &plan.Status, &plan.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.ReservationPlan{}, errors.NewNotFoundError(fmt.Sprintf("Plano de reserva %s não encontrado.", planID))
	}
	if err != nil {
		return domain.ReservationPlan{}, errors.NewDBError("Falha ao buscar plano de reserva", err)
	}

	plan.Lines, err = loadLines(ctxTimeout, r.DB, planID)
	if err != nil {
		return domain.ReservationPlan{}, err
	}
	return plan, nil
}

// ExpiringWithin devolve os lotes com disponível > 0 e validade em [from, to].
func (r *StockRepository) ExpiringWithin(ctx context.Context, from, to time.Time) ([]domain.StockItem, error) {
	r.logger.Debug("Buscando lotes a expirar.", map[string]interface{}{"from": from, "to": to})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + stockItemColumns + `
        FROM stock_items
        WHERE quantity > reserved_quantity
          AND expiration_date BETWEEN $1 AND $2
        ORDER BY expiration_date, product_id, id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, from, to)
	if err != nil {
		r.logger.Error("Falha ao executar query de lotes a expirar.", err)
		return nil, errors.NewDBError("Falha ao buscar lotes a expirar", err)
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear lote", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de lotes", err)
	}
	return items, nil
}

// Availability soma o disponível dos lotes não expirados de um produto.
func (r *StockRepository) Availability(ctx context.Context, productID string, now time.Time) (domain.ProductAvailability, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT COALESCE(SUM(quantity - reserved_quantity), 0), COUNT(*)
        FROM stock_items
        WHERE product_id = $1
          AND quantity > reserved_quantity
          AND (expiration_date IS NULL OR expiration_date >= $2)`

	av := domain.ProductAvailability{ProductID: productID}
	if err := r.DB.QueryRowContext(ctxTimeout, query, productID, now).Scan(&av.Available, &av.Batches); err != nil {
		r.logger.Error("Falha ao calcular disponibilidade.", err)
		return domain.ProductAvailability{}, errors.NewDBError("Falha ao calcular disponibilidade", err)
	}
	return av, nil
}

// --- Helpers transacionais ---

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadLines(ctx context.Context, q queryer, planID string) ([]domain.ReservationLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT stock_item_id, quantity FROM reservation_lines WHERE reservation_id = $1 ORDER BY position`, planID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao buscar linhas do plano", err)
	}
	defer rows.Close()

	var lines []domain.ReservationLine
	for rows.Next() {
		var l domain.ReservationLine
		if err := rows.Scan(&l.StockItemID, &l.Quantity); err != nil {
			return nil, errors.NewDBError("Falha ao mapear linha do plano", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração das linhas do plano", err)
	}
	return lines, nil
}

// lockItems bloqueia os lotes por ordem de id, a mesma ordem usada em Reserve,
// para que transações concorrentes nunca se bloqueiem mutuamente.
func lockItems(ctx context.Context, tx *sql.Tx, ids []string) (map[string]*domain.StockItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+stockItemColumns+` FROM stock_items WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, errors.NewDBError("Falha ao bloquear lotes", err)
	}
	defer rows.Close()

	items := make(map[string]*domain.StockItem, len(ids))
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear lote", err)
		}
		items[item.ID] = &item
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de lotes", err)
	}
	return items, nil
}

func updateCounters(ctx context.Context, tx *sql.Tx, item domain.StockItem, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE stock_items SET quantity = $1, reserved_quantity = $2, updated_at = $3 WHERE id = $4`,
		item.Quantity, item.ReservedQuantity, now, item.ID)
	if err != nil {
		return errors.NewDBError("Falha ao atualizar contadores do lote", err)
	}
	return nil
}

func insertPlan(ctx context.Context, tx *sql.Tx, plan domain.ReservationPlan) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, product_id, quantity, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		plan.ID, plan.ProductID, plan.Quantity, plan.Status, plan.CreatedAt)
	if err != nil {
		return errors.NewDBError("Falha ao inserir plano de reserva", err)
	}
	for i, l := range plan.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reservation_lines (reservation_id, position, stock_item_id, quantity) VALUES ($1, $2, $3, $4)`,
			plan.ID, i, l.StockItemID, l.Quantity)
		if err != nil {
			return errors.NewDBError("Falha ao inserir linha do plano", err)
		}
	}
	return nil
}
