package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados da Loja Social.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND", "INTERNAL_ERROR")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// Categorias específicas de validação usadas na submissão de pedidos.
const (
	CategoryValidation  = "VALIDATION_ERROR"
	CategoryEmptyCart   = "EMPTY_CART"
	CategoryCapExceeded = "CAP_EXCEEDED"
)

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
// Code distingue as variantes (carrinho vazio, limite excedido); vazio equivale a VALIDATION_ERROR.
type ValidationError struct {
	Msg  string
	Code string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string {
	if e.Code == "" {
		return CategoryValidation
	}
	return e.Code
}
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error   { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NewEmptyCartError é devolvido quando um pedido é submetido sem itens.
func NewEmptyCartError() AppError {
	return &ValidationError{Msg: "O pedido deve conter pelo menos um item.", Code: CategoryEmptyCart}
}

// NewCapExceededError é devolvido quando a soma das quantidades ultrapassa o limite por pedido.
func NewCapExceededError(total, limit int) AppError {
	return &ValidationError{
		Msg:  fmt.Sprintf("O pedido contém %d unidades, acima do limite de %d.", total, limit),
		Code: CategoryCapExceeded,
	}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito genérico na regra de negócio (e.g., recurso duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// InsufficientStockError indica que o stock disponível de um produto não cobre a quantidade pedida.
// O cliente pode tentar de novo depois de uma reposição.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente para o produto %s: pedido %d, disponível %d", e.ProductID, e.Requested, e.Available)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *InsufficientStockError) Unwrap() error    { return nil }

// NewInsufficientStockError cria um erro de stock insuficiente.
func NewInsufficientStockError(productID string, requested, available int) AppError {
	return &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
}

// InvalidTransitionError indica que o estado observado do pedido não permite a transição.
// Normalmente significa que o cliente tem uma visão desatualizada e deve recarregar.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Transição inválida: %s -> %s", e.From, e.To)
}
func (e *InvalidTransitionError) Category() string { return "INVALID_TRANSITION" }
func (e *InvalidTransitionError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *InvalidTransitionError) Unwrap() error    { return nil }

// NewInvalidTransitionError cria um erro de transição inválida.
func NewInvalidTransitionError(from, to string) AppError {
	return &InvalidTransitionError{From: from, To: to}
}

// NotOwnerError é devolvido quando alguém tenta cancelar um pedido que não lhe pertence.
type NotOwnerError struct {
	Msg string
}

func (e *NotOwnerError) Error() string    { return fmt.Sprintf("Sem permissão: %s", e.Msg) }
func (e *NotOwnerError) Category() string { return "NOT_OWNER" }
func (e *NotOwnerError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *NotOwnerError) Unwrap() error    { return nil }

// NewNotOwnerError cria um erro de posse.
func NewNotOwnerError(msg string) AppError {
	return &NotOwnerError{Msg: msg}
}

// UnauthorizedError representa um token ausente, inválido ou expirado.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError representa um papel sem permissão para o recurso.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewForbiddenError cria um erro de autorização.
func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InvariantViolationError indica que os contadores do ledger chegaram a um estado impossível
// (e.g., commit acima do reservado). É sempre um bug e nunca é ignorado.
type InvariantViolationError struct {
	Msg string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("Violação de invariante: %s", e.Msg)
}
func (e *InvariantViolationError) Category() string { return "INVARIANT_VIOLATION" }
func (e *InvariantViolationError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InvariantViolationError) Unwrap() error    { return nil }

// NewInvariantViolationError cria um erro de invariante.
func NewInvariantViolationError(msg string) AppError {
	return &InvariantViolationError{Msg: msg}
}

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Erro Interno: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("Erro Interno: %s", e.Msg)
}
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB)", msg), err)
}

// IsAppError indica se err (ou algum erro da sua cadeia) já é um erro tipado.
func IsAppError(err error) bool {
	var appErr AppError
	return stderrors.As(err, &appErr)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// Percorre a cadeia de Unwrap, por isso um AppError embrulhado com fmt.Errorf("%w") continua mapeado.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
