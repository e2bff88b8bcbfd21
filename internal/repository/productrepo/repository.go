package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lojasocial/internal/domain"
	"lojasocial/internal/errors"
	"lojasocial/internal/pkg/cache"
	"lojasocial/internal/pkg/logger"
)

// Código SQLSTATE de violação de unicidade no PostgreSQL.
const uniqueViolation = "23505"

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

// ProductRepository guarda o catálogo no PostgreSQL com cache-aside em Redis.
type ProductRepository struct {
	DB        *sql.DB      // Conexão principal com o banco de dados (PostgreSQL)
	Cache     cache.Client // Cliente para operações de cache (Redis)
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

const productColumns = `id, barcode, name, brand, category, image_url, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.Brand, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Save persiste um novo Produto. Código de barras repetido devolve ConflictError.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
        INSERT INTO products (id, barcode, name, brand, category, image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + productColumns

	saved, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query,
		product.ID, product.Barcode, product.Name, product.Brand,
		product.Category, product.ImageURL, product.CreatedAt, product.UpdatedAt,
	))
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.Product{}, errors.NewConflictError(fmt.Sprintf("Já existe um produto com o código de barras %s.", product.Barcode))
		}
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao criar produto", err)
	}

	r.logger.Info("Produto criado.", map[string]interface{}{"id": saved.ID, "barcode": saved.Barcode})
	return saved, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)

	// --- Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		var product domain.Product
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			return product, nil
		}
		r.logger.Warn("Entrada de cache de produto corrompida. A ler do DB.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (ex: conexão perdida): seguimos para o DB.
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	// --- Cache-Aside (WRITE) ---
	r.storeInCache(ctxTimeout, key, product)
	return product, nil
}

// FindByBarcode busca um produto pelo código de barras (sem cache; usado na receção de stock).
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`

	product, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query, barcode))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com código de barras %s não existe.", barcode))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto por código de barras.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto", err)
	}
	return product, nil
}

// List devolve o catálogo, opcionalmente filtrado por categoria.
func (r *ProductRepository) List(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE ($1 = '' OR category = $1) ORDER BY name`

	rows, err := r.DB.QueryContext(ctxTimeout, query, string(category))
	if err != nil {
		r.logger.Error("Falha ao listar produtos.", err)
		return nil, errors.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear produto", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de produtos", err)
	}
	return products, nil
}

// Update altera os dados de referência de um produto e invalida a entrada de cache.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE products
        SET name = $1, brand = $2, category = $3, image_url = $4, updated_at = $5
        WHERE id = $6
        RETURNING ` + productColumns

	updated, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query,
		product.Name, product.Brand, product.Category, product.ImageURL, time.Now().UTC(), product.ID,
	))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não encontrado para atualização.", product.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar produto.", err)
		return domain.Product{}, errors.NewDBError("Falha ao atualizar produto", err)
	}

	if err := r.Cache.Delete(ctxTimeout, fmt.Sprintf(productCacheKey, product.ID)); err != nil {
		r.logger.Warn("Falha ao invalidar cache de produto.", map[string]interface{}{"id": product.ID, "error": err.Error()})
	}
	return updated, nil
}

func (r *ProductRepository) storeInCache(ctx context.Context, key string, product domain.Product) {
	productJSON, err := json.Marshal(product)
	if err != nil {
		r.logger.Warn("Falha ao serializar produto para cache.", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := r.Cache.Set(ctx, key, productJSON, r.CacheTTL); err != nil {
		r.logger.Warn("Falha ao gravar produto em cache.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
