package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/cache"
	memcache "github.com/arunvm123/carrental/cache/memory"
	"github.com/arunvm123/carrental/cache/redis"
	"github.com/arunvm123/carrental/config"
	"github.com/arunvm123/carrental/repository"
	"github.com/arunvm123/carrental/repository/firestore"
	"github.com/arunvm123/carrental/repository/memory"
	"github.com/arunvm123/carrental/repository/postgres"
	"github.com/arunvm123/carrental/service"
	kafkaservice "github.com/arunvm123/carrental/service/kafka"
)

// Dependencies are the collaborators the HTTP API is built from.
type Dependencies struct {
	Store           repository.Store
	Cache           cache.CacheRepository
	Manager         *booking.Manager
	Payments        service.PaymentEventPublisher
	JWT             *JWTService
	Log             logrus.FieldLogger
	WebhookSecret   string
	DefaultCurrency string
	StatusTTL       time.Duration
}

// NewStore opens the document store selected by the config.
func NewStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverPostgres:
		return postgres.NewStore(&cfg.Database)
	case config.DriverFirestore:
		return firestore.NewStore(ctx, &cfg.Firestore)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// NewCache connects to Redis, or keeps statuses in process for the memory store.
func NewCache(ctx context.Context, cfg *config.Config) (cache.CacheRepository, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return memcache.NewMemoryCache(), nil
	}
	return redis.NewRedisCacheRepository(ctx, cfg.Redis.GetRedisURL(), cfg.Redis.Password, cfg.Redis.DB)
}

// BuildDependencies wires the store, cache, Kafka and booking engine. The
// returned cleanup closes everything that was opened.
func BuildDependencies(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Dependencies, func(), error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	closers := []func() error{store.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("cleanup failed")
			}
		}
	}

	statusCache, err := NewCache(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if closer, ok := statusCache.(io.Closer); ok {
		closers = append(closers, closer.Close)
	}

	statusTTL := time.Duration(cfg.Redis.StatusTTL) * time.Second
	notifiers := service.Notifiers{cache.NewStatusNotifier(statusCache, statusTTL)}

	var notificationWriter, paymentWriter *kafka.Writer
	if cfg.Kafka.Enabled {
		notificationWriter = kafkaservice.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		paymentWriter = kafkaservice.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.PaymentTopic)
		closers = append(closers, notificationWriter.Close, paymentWriter.Close)
		notifiers = append(notifiers, kafkaservice.NewNotifier(notificationWriter))
	}

	manager := booking.NewManager(store, store,
		booking.WithNotifier(notifiers),
		booking.WithLogger(log),
		booking.WithHoldTTL(cfg.Booking.HoldTTL()),
		booking.WithTaxRate(cfg.Booking.TaxRate))

	var payments service.PaymentEventPublisher = inlinePublisher{reconciler: booking.NewReconciler(manager)}
	if paymentWriter != nil {
		payments = kafkaservice.NewPaymentPublisher(paymentWriter)
	}

	return &Dependencies{
		Store:           store,
		Cache:           statusCache,
		Manager:         manager,
		Payments:        payments,
		JWT:             NewJWTService(cfg.JWTSecret),
		Log:             log,
		WebhookSecret:   cfg.Webhook.Secret,
		DefaultCurrency: cfg.Booking.DefaultCurrency,
		StatusTTL:       statusTTL,
	}, cleanup, nil
}

func SetupRouter(deps *Dependencies) *gin.Engine {
	// Initialize handlers
	bookingHandler := NewBookingHandler(deps.Manager, deps.Cache, deps.StatusTTL, deps.Log)
	carHandler := NewCarHandler(deps.Store, deps.DefaultCurrency)
	adminHandler := NewAdminHandler(deps.Manager)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.WebhookSecret, deps.Log)
	healthHandler := NewHealthHandler(deps.Store, deps.Cache)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(LoggingMiddleware(deps.Log))

	// Health check endpoint (no auth required)
	r.GET("/health", healthHandler.HealthCheck)

	// Payment gateway callback, authenticated by shared secret
	r.POST("/payments/webhook", paymentHandler.Webhook)

	api := r.Group("/api")

	// Public catalogue
	api.GET("/cars", carHandler.ListCars)
	api.GET("/cars/:carId", carHandler.GetCar)

	// Protected endpoints (require authentication)
	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.JWT))

	protected.POST("/bookings/check", bookingHandler.CheckAvailability)
	protected.POST("/bookings", bookingHandler.CreateBooking)
	protected.GET("/bookings", bookingHandler.ListBookings)
	protected.GET("/bookings/:bookingId", bookingHandler.GetBooking)
	protected.GET("/bookings/:bookingId/status", bookingHandler.GetBookingStatus)
	protected.GET("/bookings/:bookingId/stream", bookingHandler.StreamBookingStatus)
	protected.POST("/bookings/:bookingId/cancel", bookingHandler.CancelBooking)

	// Admin endpoints
	admin := protected.Group("")
	admin.Use(AdminOnly())

	admin.POST("/cars", carHandler.CreateCar)
	admin.PUT("/cars/:carId", carHandler.UpdateCar)
	admin.DELETE("/cars/:carId", carHandler.DeleteCar)
	admin.PUT("/admin/bookings/:bookingId/status", adminHandler.UpdateBookingStatus)
	admin.POST("/admin/holds/expire", adminHandler.ExpireHolds)
	admin.GET("/admin/stats", adminHandler.Stats)

	return r
}
