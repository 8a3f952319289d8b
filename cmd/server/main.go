package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/propflow/settlement-api/internal/auth"
	"github.com/propflow/settlement-api/internal/config"
	"github.com/propflow/settlement-api/internal/database"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/mailer"
	"github.com/propflow/settlement-api/internal/messaging"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/propflow/settlement-api/internal/properties"
	"github.com/propflow/settlement-api/internal/settlement"
	"github.com/propflow/settlement-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Internal service credentials used for backend-to-backend calls
var (
	internalAPIKey    = "internal-service-key"
	internalAPISecret = "internal-service-secret"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the settlement API server with graceful
// shutdown support
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret, auth.RoleAgent)
	authService.RegisterAPICredentials(internalAPIKey, internalAPISecret, auth.RoleAdmin)

	// Token used by the payment record creator when calling back into the
	// payments backend
	internalToken, err := authService.GenerateToken(auth.Credentials{
		APIKey:    internalAPIKey,
		APISecret: internalAPISecret,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to generate internal service token")
	}

	paymentsService := payments.NewService(db)
	paymentsHandlers := payments.NewGinHandlers(paymentsService)
	creator := payments.NewCreator(cfg.Backend.BaseURL(), internalToken.Token, cfg.Backend.Timeout, paymentsService.GetDB())

	dispatcher := mailer.New(cfg.SMTP)

	invoiceService := invoice.NewService(db, cfg.Bank, creator, dispatcher)
	invoiceHandlers := invoice.NewGinHandlers(invoiceService)

	propertiesService := properties.NewService(db, invoiceService)
	propertiesHandlers := properties.NewGinHandlers(propertiesService)

	messagingService := messaging.NewService(db)
	messagingHandlers := messaging.NewGinHandlers(messagingService)

	settlementService := settlement.NewService(propertiesService, invoiceService, messagingService)
	settlementHandlers := settlement.NewGinHandlers(settlementService)

	// Create and start settlement processor
	settlementProcessor := settlement.NewProcessor(invoiceService, creator)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go settlementProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.Auth.JWTSecret,
		authHandlers, propertiesHandlers, invoiceHandlers,
		messagingHandlers, settlementHandlers, paymentsHandlers)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Property/invoice/message routes: Protected by JWT authentication
// - Settlement routes: Protected by JWT authentication and agent role
// - Admin routes: Protected by internal service authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	propertiesHandlers *properties.GinHandlers,
	invoiceHandlers *invoice.GinHandlers,
	messagingHandlers *messaging.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	paymentsHandlers *payments.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Property routes
		props := v1.Group("/properties")
		props.Use(middleware.JWTAuth(jwtSecret))
		{
			props.POST("", propertiesHandlers.CreatePropertyHandler())
			props.GET("/:property_id", propertiesHandlers.GetPropertyHandler())
			props.PATCH("/:property_id/status", propertiesHandlers.UpdateStatusHandler())
			props.GET("/:property_id/buyers", propertiesHandlers.GetBuyersHandler())
			props.POST("/:property_id/buyers", propertiesHandlers.AddBuyerHandler())
		}

		// Settlement routes
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRole(auth.RoleAgent, auth.RoleAdmin))
		{
			settlements.POST("/:property_id", settlementHandlers.SettlePropertyHandler())
		}

		// Invoice routes
		invoices := v1.Group("/invoices")
		invoices.Use(middleware.JWTAuth(jwtSecret))
		{
			invoices.POST("/generate-settlement", invoiceHandlers.GenerateSettlementHandler())
			invoices.GET("", invoiceHandlers.GetSellerInvoicesHandler())
			invoices.GET("/:invoice_number", invoiceHandlers.GetInvoiceHandler())
			invoices.GET("/:invoice_number/download", invoiceHandlers.DownloadInvoiceHandler())
		}

		// Message routes
		messages := v1.Group("/messages")
		messages.Use(middleware.JWTAuth(jwtSecret))
		{
			messages.POST("", messagingHandlers.SendMessageHandler())
			messages.GET("", messagingHandlers.ListMessagesHandler())
		}

		// Admin routes (should be protected by internal network)
		admin := v1.Group("/admin")
		admin.Use(middleware.InternalAuth(jwtSecret))
		{
			admin.POST("/payment-records", paymentsHandlers.CreatePaymentRecordHandler())
			admin.GET("/payment-records", paymentsHandlers.GetSellerPaymentRecordsHandler())
			admin.PATCH("/payment-records/:payment_id/status", paymentsHandlers.UpdatePaymentStatusHandler())
			admin.POST("/invoices/:invoice_number/paid", invoiceHandlers.MarkPaidHandler())
			admin.GET("/follow-ups", messagingHandlers.ListFollowUpsHandler())
			admin.POST("/follow-ups/:follow_up_id/resolve", messagingHandlers.ResolveFollowUpHandler())
		}
	}
}
