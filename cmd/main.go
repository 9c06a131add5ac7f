package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"portfolio-simulator/config"
	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/handlers"
	"portfolio-simulator/internal/scheduler"
	"portfolio-simulator/internal/services"
	"portfolio-simulator/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newStore(ctx, cfg)
	prices := newPriceCache(cfg)

	ledger := services.NewLedger(ctx, store, prices, cfg.Portfolio.InitialCash, cfg.Portfolio.TargetGoal)
	achievements := services.NewAchievementService(ctx, store, ledger, prices)

	marketClient := services.NewMarketDataClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.Timeout,
		cfg.Finnhub.Debug,
		cfg.Market.WindowLength,
		cfg.Market.CandleLookback,
		cfg.Market.CandleResolution,
	)
	simulator := services.NewSimulator()
	liveSource := services.NewLiveSource(marketClient)
	simSource := services.NewSimSource(simulator, prices, cfg.Market.WindowLength)

	stream := services.NewStreamManager(cfg.Finnhub.WSURL + "?token=" + cfg.Finnhub.Token)
	gateway := services.NewGateway(cfg.Finnhub.BaseURL, cfg.Finnhub.Token, cfg.Finnhub.Timeout, cfg.Finnhub.Debug)

	hub := services.NewHub()
	go hub.Run()

	sched := scheduler.New()
	feed := services.NewChartFeed(liveSource, simulator, prices, cfg.Market.WindowLength)
	engine := services.NewEngine(cfg.Market, feed, liveSource, simSource, prices, stream, hub, sched)

	engine.Start(ctx)
	sched.Start()
	defer sched.Stop()
	defer engine.Stop()

	router := gin.Default()
	router.Use(handlers.CORS(), handlers.RequestID())

	gatewayHandler := handlers.NewGatewayHandler(gateway)
	marketHandler := handlers.NewMarketHandler(engine)
	portfolioHandler := handlers.NewPortfolioHandler(ledger, engine, achievements, prices)
	dashboardHandler := handlers.NewDashboardHandler(engine, store)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/quote-proxy", gatewayHandler.Proxy)

	api := router.Group("/api")
	{
		api.GET("/stocks", marketHandler.GetInstruments)
		api.GET("/stocks/:symbol", marketHandler.GetInstrument)
		api.GET("/portfolio", portfolioHandler.GetPortfolio)
		api.POST("/trades", portfolioHandler.PlaceTrade)
		api.GET("/transactions", portfolioHandler.GetTransactions)
		api.GET("/achievements", portfolioHandler.GetAchievements)
		api.GET("/chart", dashboardHandler.GetChart)
		api.PUT("/dashboard", dashboardHandler.UpdateDashboard)
		api.GET("/tutorial", dashboardHandler.GetTutorial)
		api.PUT("/tutorial", dashboardHandler.PutTutorial)
	}

	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", slog.String("err", err.Error()))
			return
		}

		client := hub.RegisterClient(conn)
		go client.WritePump()
		go client.ReadPump()
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		slog.Info("dashboard server listening", slog.Int("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %s", err)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", slog.String("err", err.Error()))
	}
	if closer, ok := store.(*storage.MongoStore); ok {
		_ = closer.Close(shutdownCtx)
	}
}

func newStore(ctx context.Context, cfg *config.Config) storage.Store {
	switch cfg.Storage.Driver {
	case "mongo":
		store, err := storage.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB)
		if err != nil {
			log.Fatalf("mongo store: %s", err)
		}
		return store
	case "memory":
		return storage.NewMemStore()
	default:
		store, err := storage.NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			log.Fatalf("file store: %s", err)
		}
		return store
	}
}

func newPriceCache(cfg *config.Config) cache.PriceCache {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Fatalf("redis cache: %s", err)
		}
		return cache.NewRedisCache(client, cfg.Cache.QuoteExpiration)
	}
	return cache.NewMemCache()
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
