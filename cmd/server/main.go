package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/careerbridge/slot-booking/internal/config"
	"github.com/careerbridge/slot-booking/internal/database"
	"github.com/careerbridge/slot-booking/internal/handler"
	"github.com/careerbridge/slot-booking/internal/middleware"
	"github.com/careerbridge/slot-booking/internal/queue"
	"github.com/careerbridge/slot-booking/internal/repository"
	"github.com/careerbridge/slot-booking/internal/router"
	"github.com/careerbridge/slot-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}
	cfg := config.Load()
	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	slotRepo := repository.NewSlotRepo(db)
	engine := service.NewBookingService(slotRepo, logger)

	// Redis backs the response cache and the rate limiter; when it is
	// unreachable both middlewares degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; response cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	slotHandler := handler.NewSlotHandler(engine)
	bookingHandler := handler.NewBookingHandler(engine, logger, queue.PublishSlotBooked)

	router.RegisterRoutes(e)
	router.RegisterSlots(e, slotHandler, bookingHandler, cfg.JWTSecret, cacheMW)

	// The consumer keeps its own reconnect loop and never returns under
	// normal operation.
	go func() {
		if err := queue.StartBookingConsumer(logger); err != nil {
			logger.Error("booking consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newLogger builds a zap logger tuned to the environment: JSON in prod,
// colored console output everywhere else.
func newLogger(env string) *zap.Logger {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return logger
}
