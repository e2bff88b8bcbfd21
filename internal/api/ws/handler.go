package ws

import (
	"net/http"

	"lojasocial/internal/api/respond"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/middleware"
)

// Server é o lado do Hub que aceita ligações WebSocket.
type Server interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string, role domain.UserRole)
}

// Handler liga utilizadores autenticados ao canal de notificações.
type Handler struct {
	Hub    Server
	Logger logger.Logger
}

// NewHandler cria o Handler de WebSocket.
func NewHandler(hub Server, log logger.Logger) *Handler {
	return &Handler{Hub: hub, Logger: log}
}

// ConnectHandler lida com a requisição GET /v1/ws.
// @Summary Canal de notificações em tempo real
// @Description Abre um WebSocket. Beneficiários recebem eventos dos seus pedidos, funcionários recebem todos os eventos.
// @Tags notifications
// @Param token query string false "JWT, alternativa ao cabeçalho Authorization"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} domain.ErrorResponse
// @Router /ws [get]
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		respond.ServiceResponse(h.Logger, w, r, nil, apperror.NewUnauthorizedError("Autorização necessária."), http.StatusOK)
		return
	}

	h.Logger.Debug("Pedido de ligação WebSocket.", map[string]interface{}{"user_id": claims.UserID, "role": claims.Role})
	h.Hub.Serve(w, r, claims.UserID, claims.Role)
}
