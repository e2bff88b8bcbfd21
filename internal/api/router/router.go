package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "lojasocial/docs" // documentação Swagger gerada por swag init
	"lojasocial/internal/api/campaign"
	"lojasocial/internal/api/product"
	"lojasocial/internal/api/request"
	"lojasocial/internal/api/stock"
	"lojasocial/internal/api/ws"
	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/cache"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/middleware"
)

// Handlers reúne os Handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product  *product.Handler
	Campaign *campaign.Handler
	Stock    *stock.Handler
	Request  *request.Handler
	WS       *ws.Handler
}

// RateLimit configura a janela fixa por IP aplicada a todas as rotas.
type RateLimit struct {
	Cache       cache.Client
	MaxRequests int
	Period      time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, limit RateLimit, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	staff := middleware.PermissionMiddleware(domain.StaffRoles...)
	anyone := middleware.PermissionMiddleware(domain.AllRoles...)

	// staffOnly e authenticated encadeiam autenticação e papel, por esta ordem.
	staffOnly := func(next http.HandlerFunc) http.HandlerFunc { return auth(staff(next)) }
	authenticated := func(next http.HandlerFunc) http.HandlerFunc { return auth(anyone(next)) }

	// --- Health Check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- Catálogo ---
	mux.HandleFunc("POST /v1/products", staffOnly(h.Product.CreateProductHandler))
	mux.HandleFunc("GET /v1/products", authenticated(h.Product.ListProductsHandler))
	mux.HandleFunc("GET /v1/products/{id}", authenticated(h.Product.GetProductByIDHandler))
	mux.HandleFunc("PUT /v1/products/{id}", staffOnly(h.Product.UpdateProductHandler))
	mux.HandleFunc("GET /v1/products/barcode/{barcode}", staffOnly(h.Product.LookupBarcodeHandler))

	// --- Campanhas ---
	mux.HandleFunc("POST /v1/campaigns", staffOnly(h.Campaign.CreateCampaignHandler))
	mux.HandleFunc("GET /v1/campaigns", authenticated(h.Campaign.GetAllCampaignsHandler))
	mux.HandleFunc("GET /v1/campaigns/{id}", authenticated(h.Campaign.GetCampaignByIDHandler))
	mux.HandleFunc("PUT /v1/campaigns/{id}", staffOnly(h.Campaign.UpdateCampaignHandler))
	mux.HandleFunc("DELETE /v1/campaigns/{id}", staffOnly(h.Campaign.DeleteCampaignHandler))

	// --- Stock ---
	mux.HandleFunc("POST /v1/stock/items", staffOnly(h.Stock.ReceiveStockHandler))
	mux.HandleFunc("GET /v1/stock/items/{id}", staffOnly(h.Stock.GetStockItemHandler))
	mux.HandleFunc("GET /v1/stock/expiring", staffOnly(h.Stock.ExpiringHandler))
	mux.HandleFunc("GET /v1/stock/products/{productId}/availability", authenticated(h.Stock.AvailabilityHandler))

	// --- Pedidos ---
	// Posse (dono ou funcionário) é verificada no serviço.
	mux.HandleFunc("POST /v1/requests", authenticated(h.Request.SubmitHandler))
	mux.HandleFunc("GET /v1/requests", authenticated(h.Request.ListHandler))
	mux.HandleFunc("GET /v1/requests/{id}", authenticated(h.Request.GetHandler))
	mux.HandleFunc("POST /v1/requests/{id}/cancel", authenticated(h.Request.CancelHandler))
	mux.HandleFunc("POST /v1/requests/{id}/accept", staffOnly(h.Request.AcceptHandler))
	mux.HandleFunc("POST /v1/requests/{id}/reject", staffOnly(h.Request.RejectHandler))
	mux.HandleFunc("POST /v1/requests/{id}/complete", staffOnly(h.Request.CompleteHandler))
	mux.HandleFunc("POST /v1/requests/{id}/reschedule", staffOnly(h.Request.RescheduleHandler))

	// --- Notificações ---
	mux.HandleFunc("GET /v1/ws", middleware.NewWebSocketAuthMiddleware(tokenSvc)(anyone(h.WS.ConnectHandler)))

	// Middlewares globais: o log envolve tudo, incluindo pedidos barrados pelo rate limit.
	var handler http.Handler = mux
	if limit.Cache != nil {
		handler = middleware.RateLimiter(limit.Cache, limit.MaxRequests, limit.Period, log)(handler)
	}
	return middleware.RequestLogger(log)(handler)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
