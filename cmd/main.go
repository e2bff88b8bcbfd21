package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"lojasocial/config"
	"lojasocial/internal/pkg/cache"
	"lojasocial/internal/pkg/database"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/telemetry"
	"lojasocial/internal/pkg/token"

	// Camadas de domínio para Injeção de Dependências
	"lojasocial/internal/api/campaign"
	"lojasocial/internal/api/product"
	"lojasocial/internal/api/request"
	"lojasocial/internal/api/router"
	"lojasocial/internal/api/stock"
	"lojasocial/internal/api/ws"
	"lojasocial/internal/catalog"
	"lojasocial/internal/catalog/lookup"
	"lojasocial/internal/notify"
	"lojasocial/internal/repository/campaignrepo"
	"lojasocial/internal/repository/productrepo"
	"lojasocial/internal/repository/requestrepo"
	"lojasocial/internal/repository/stockrepo"
	"lojasocial/internal/service/campaignservice"
	"lojasocial/internal/service/expiryservice"
	"lojasocial/internal/service/requestservice"
	"lojasocial/internal/service/stockservice"
)

const version = "1.0.0"

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// Sem .env continuamos: as variáveis podem vir do ambiente (ex: Docker).
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel)
	if z, ok := appLog.(*logger.ZapLogger); ok {
		defer z.Sync()
	}
	appLog.Info("⚡ Inicializando serviço Loja Social...", map[string]interface{}{"env": cfg.Environment})

	// Contexto raiz: cancelado com SIGINT/SIGTERM, pára os workers de fundo.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Telemetria (no-op sem OTEL_EXPORTER_OTLP_ENDPOINT)
	providers, err := telemetry.Setup(ctx, cfg.ServiceName, version, cfg.OTLPEndpoint)
	if err != nil {
		appLog.Fatal("Falha ao iniciar telemetria.", err)
	}

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao Redis.", err)
	}
	defer cacheClient.Close()
	appLog.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, appLog)
	stockRepo := stockrepo.NewStockRepository(db, cfg.DBTimeout, appLog)
	campaignRepo := campaignrepo.NewCampaignRepository(db, cfg.DBTimeout, appLog)
	requestRepo := requestrepo.NewRequestRepository(db, cfg.DBTimeout, appLog)
	appLog.Debug("Repositórios inicializados.", nil)

	// B. Notificações: fila limitada drenada por uma goroutine, entregue ao Hub WebSocket e ao log.
	hub := notify.NewHub(appLog)
	dispatcher := notify.NewDispatcher(cfg.NotifyQueueSize, appLog, hub, notify.LogSink{Logger: appLog})
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// C. Serviços
	catalogSvc := catalog.NewService(productRepo, lookup.NewClient(cfg.CatalogLookupURL, cfg.CatalogLookupTimeout), appLog)
	campaignSvc := campaignservice.NewService(campaignRepo, appLog)
	stockSvc := stockservice.NewService(stockRepo, catalogSvc, campaignSvc, appLog)
	requestSvc := requestservice.NewService(requestRepo, stockSvc, catalogSvc, dispatcher, appLog,
		requestservice.WithItemCap(cfg.RequestItemCap))
	expirySvc := expiryservice.NewService(stockSvc, catalogSvc, dispatcher, appLog,
		expiryservice.WithThresholdDays(cfg.ExpiryThresholdDays))
	appLog.Debug("Serviços inicializados.", nil)

	go expirySvc.Run(ctx, cfg.ExpiryScanInterval)

	// D. Handlers
	handlers := router.Handlers{
		Product:  product.NewHandler(catalogSvc, appLog),
		Campaign: campaign.NewHandler(campaignSvc, appLog),
		Stock:    stock.NewHandler(stockSvc, expirySvc, appLog),
		Request:  request.NewHandler(requestSvc, appLog),
		WS:       ws.NewHandler(hub, appLog),
	}

	// E. Serviço de Tokens (JWT): apenas valida; a emissão é do serviço de autenticação.
	tokenSvc := token.NewService(cfg.JWTSecretKey)

	// 4. Roteador e Servidor
	r := router.NewRouter(handlers, tokenSvc, router.RateLimit{
		Cache:       cacheClient,
		MaxRequests: cfg.RateLimitMaxRequests,
		Period:      cfg.RateLimitPeriod,
	}, appLog)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor Loja Social ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	// O dispatcher entrega o que ficou na fila antes de sair.
	<-dispatcherDone

	if err := providers.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Falha ao encerrar telemetria.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
