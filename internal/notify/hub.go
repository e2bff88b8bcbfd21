package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/logger"
)

const (
	// Tempo máximo sem receber nada do cliente (ping incluído).
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
	bufferSize = 1024

	// Mensagens em espera por cliente; acima disto as novas são descartadas.
	sendQueueSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  bufferSize,
	WriteBufferSize: bufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Cada cliente tem a sua fila; só writePump escreve mensagens na ligação.
type client struct {
	userID string
	role   domain.UserRole
	conn   *websocket.Conn
	send   chan []byte
}

func newClient(userID string, role domain.UserRole, conn *websocket.Conn) *client {
	return &client{userID: userID, role: role, conn: conn, send: make(chan []byte, sendQueueSize)}
}

// writePump esvazia a fila até ela ser fechada pelo unregister.
func (h *Hub) writePump(c *client) {
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Debug("Falha ao escrever no WebSocket.", map[string]interface{}{"user_id": c.userID, "error": err.Error()})
			// Fechar a ligação faz o loop de leitura terminar e remover o cliente.
			c.conn.Close()
			return
		}
	}
}

// Hub gere as ligações WebSocket abertas. Um utilizador pode ter várias ligações.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
	logger  logger.Logger
}

// NewHub cria um Hub vazio.
func NewHub(logger logger.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.logger.Debug("Cliente WebSocket registado.", map[string]interface{}{"user_id": c.userID, "role": c.role})
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("Cliente WebSocket removido.", map[string]interface{}{"user_id": c.userID})
	}
}

// Connections devolve o número de ligações abertas.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve faz o upgrade do pedido HTTP e mantém a ligação até o cliente sair.
// A identidade vem já validada pelo middleware de autenticação.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, role domain.UserRole) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Falha no upgrade para WebSocket.", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return
	}

	c := newClient(userID, role, conn)
	h.register(c)
	go h.writePump(c)
	defer func() {
		h.unregister(c)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	// O cliente não envia mensagens úteis; o loop de leitura serve para detetar o fecho.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Ligação WebSocket fechada inesperadamente.", map[string]interface{}{"user_id": userID, "error": err.Error()})
			}
			return
		}
	}
}

// Deliver implementa Sink: eventos de pedido vão para o dono e para a equipa; os de stock só para a equipa.
func (h *Hub) Deliver(_ context.Context, event domain.Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	owner := ""
	if p, ok := event.Payload.(domain.RequestEvent); ok {
		owner = p.UserID
	}

	// O envio é feito com o lock de leitura para o unregister não fechar a fila a meio.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.role.IsStaff() && (owner == "" || c.userID != owner) {
			continue
		}
		select {
		case c.send <- message:
		default:
			h.logger.Warn("Fila do cliente WebSocket cheia; evento descartado.", map[string]interface{}{"user_id": c.userID, "event": event.Type})
		}
	}
	return nil
}
