package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propflow/settlement-api/internal/auth"
	"github.com/propflow/settlement-api/internal/config"
	"github.com/propflow/settlement-api/internal/database"
	"github.com/propflow/settlement-api/internal/invoice"
	"github.com/propflow/settlement-api/internal/mailer"
	"github.com/propflow/settlement-api/internal/messaging"
	"github.com/propflow/settlement-api/internal/payments"
	"github.com/propflow/settlement-api/internal/properties"
	"github.com/propflow/settlement-api/internal/settlement"
	"github.com/propflow/settlement-api/internal/types"
	"github.com/propflow/settlement-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minProperties = 10
	maxProperties = 60
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
)

var (
	suburbs = []string{"Richmond", "Newtown", "Paddington", "Fitzroy", "Subiaco"}
	streets = []string{"High St", "Station Rd", "Beach Ave", "Park Lane", "Mill Ct"}
	buyers  = []string{"A. Chen", "M. Rossi", "S. Patel", "J. Okafor", "L. Nguyen", "T. Walker"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the settlement API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":     {name: "Authentication"},
			"create":   {name: "Create Property"},
			"buyer":    {name: "Add Buyer"},
			"settle":   {name: "Settle Property"},
			"invoice":  {name: "Get Invoice"},
			"messages": {name: "List Messages"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

func (sc *simulationClient) do(method, path string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}

	return resp.StatusCode, nil
}

// createProperty submits a new property listing
// Returns the property ID on success
func (sc *simulationClient) createProperty(property *types.Property) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["create"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool           `json:"success"`
		Data    types.Property `json:"data"`
	}
	status, err := sc.do(http.MethodPost, "/api/v1/properties", property, &result)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("create property failed with status %d", status)
	}
	if result.Data.PropertyID == "" {
		return "", fmt.Errorf("no property ID in response")
	}

	return result.Data.PropertyID, nil
}

// addBuyer registers buyer interest against a property
func (sc *simulationClient) addBuyer(propertyID string, buyer *properties.AddBuyerRequest) error {
	start := time.Now()
	defer func() {
		sc.stats["buyer"].addDuration(time.Since(start))
	}()

	status, err := sc.do(http.MethodPost,
		fmt.Sprintf("/api/v1/properties/%s/buyers", propertyID), buyer, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("add buyer failed with status %d", status)
	}
	return nil
}

// settleEnvelope is the raw settlement response. Data is kept raw because
// a 409 carries buyer candidates instead of a settlement result.
type settleEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// settleProperty drives the settlement pipeline for a property. When the
// API asks for buyer selection it re-posts with the first candidate, the
// way an agent would resolve the selection dialog.
func (sc *simulationClient) settleProperty(propertyID string, req *settlement.SettleRequest) (*settlement.SettleResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["settle"].addDuration(time.Since(start))
	}()

	var envelope settleEnvelope
	status, err := sc.do(http.MethodPost,
		fmt.Sprintf("/api/v1/settlements/%s", propertyID), req, &envelope)
	if err != nil {
		return nil, err
	}

	if status == http.StatusConflict && envelope.Error != nil && envelope.Error.Code == "BUYER_SELECTION_REQUIRED" {
		var candidates struct {
			Buyers []types.Buyer `json:"buyers"`
		}
		if err := json.Unmarshal(envelope.Data, &candidates); err != nil {
			return nil, fmt.Errorf("failed to decode buyer candidates: %w", err)
		}
		if len(candidates.Buyers) == 0 {
			return nil, fmt.Errorf("buyer selection required but no candidates returned")
		}

		req.BuyerID = candidates.Buyers[0].BuyerID
		envelope = settleEnvelope{}
		status, err = sc.do(http.MethodPost,
			fmt.Sprintf("/api/v1/settlements/%s", propertyID), req, &envelope)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("settle property failed with status %d", status)
	}

	var result settlement.SettleResponse
	if err := json.Unmarshal(envelope.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode settlement result: %w", err)
	}

	return &result, nil
}

// getInvoice retrieves a generated invoice
func (sc *simulationClient) getInvoice(invoiceNumber string) (*invoice.Invoice, error) {
	start := time.Now()
	defer func() {
		sc.stats["invoice"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool            `json:"success"`
		Data    invoice.Invoice `json:"data"`
	}
	status, err := sc.do(http.MethodGet,
		fmt.Sprintf("/api/v1/invoices/%s", invoiceNumber), nil, &result)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get invoice failed with status %d", status)
	}

	return &result.Data, nil
}

// listPropertyMessages lists the settlement conversation for a property
func (sc *simulationClient) listPropertyMessages(propertyID string) ([]messaging.Message, error) {
	start := time.Now()
	defer func() {
		sc.stats["messages"].addDuration(time.Since(start))
	}()

	var result struct {
		Success bool                `json:"success"`
		Data    []messaging.Message `json:"data"`
	}
	status, err := sc.do(http.MethodGet,
		fmt.Sprintf("/api/v1/messages?property_id=%s", propertyID), nil, &result)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list messages failed with status %d", status)
	}

	return result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the settlement simulation
// It starts a local API server and simulates agents settling properties
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	targetProperties := rand.Intn(maxProperties-minProperties) + minProperties
	log.Info().Int("target_properties", targetProperties).Msg("Starting simulation")

	propertiesChan := make(chan string, targetProperties)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			createPropertiesHTTP(workerID, targetProperties/numWorkers, simClient, propertiesChan)
		}(i)
	}

	wg.Wait()
	close(propertiesChan)

	var propertyIDs []string
	for propertyID := range propertiesChan {
		propertyIDs = append(propertyIDs, propertyID)
	}

	log.Info().Int("properties_created", len(propertyIDs)).Msg("All properties created")

	stats := struct {
		TotalProperties int
		Settled         int
		Invoiced        int
		Notified        int
		NoBuyers        int
		FailedSettle    int
		TotalCommission float64
		StartTime       time.Time
		BuyerCounts     map[int]int
	}{
		StartTime:   time.Now(),
		BuyerCounts: make(map[int]int),
	}
	stats.TotalProperties = len(propertyIDs)

	for _, propertyID := range propertyIDs {
		// Seed zero to three interested buyers before settling
		numBuyers := rand.Intn(4)
		stats.BuyerCounts[numBuyers]++
		for i := 0; i < numBuyers; i++ {
			buyer := &properties.AddBuyerRequest{
				Name:        buyers[rand.Intn(len(buyers))],
				Email:       fmt.Sprintf("buyer%d@example.com", rand.Intn(10000)),
				OfferAmount: float64(rand.Intn(500000) + 400000),
				Status:      properties.BuyerOfferMade,
			}
			if err := simClient.addBuyer(propertyID, buyer); err != nil {
				log.Error().Err(err).Str("property_id", propertyID).Msg("Failed to add buyer")
			}
		}

		result, err := simClient.settleProperty(propertyID, &settlement.SettleRequest{
			SettlementDate: time.Now(),
		})
		if err != nil {
			if numBuyers == 0 {
				stats.NoBuyers++
				log.Warn().Str("property_id", propertyID).Msg("No buyers found, settlement aborted")
			} else {
				stats.FailedSettle++
				log.Error().Err(err).Str("property_id", propertyID).Msg("Failed to settle property")
			}
			continue
		}
		stats.Settled++

		if result.Invoice != nil {
			stats.Invoiced++
			stats.TotalCommission += result.Invoice.TotalAmount

			inv, err := simClient.getInvoice(result.Invoice.InvoiceNumber)
			if err != nil {
				log.Error().Err(err).Str("invoice_number", result.Invoice.InvoiceNumber).Msg("Failed to fetch invoice")
			} else {
				log.Info().
					Str("invoice_number", inv.InvoiceNumber).
					Float64("total_amount", inv.TotalAmount).
					Time("due_date", inv.DueDate).
					Msg("Invoice verified")
			}
		}

		if result.Message != nil {
			stats.Notified++
			messages, err := simClient.listPropertyMessages(propertyID)
			if err == nil {
				log.Info().
					Str("property_id", propertyID).
					Int("message_count", len(messages)).
					Msg("Seller notified")
			}
		}
	}

	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SETTLEMENT SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Pipeline Statistics
-------------------
Total Properties:  %d
Settled:           %d
Invoiced:          %d
Sellers Notified:  %d
No Buyers:         %d
Failed:            %d
Total Commission:  $%.2f
Duration:          %v

Buyer Distribution
------------------
`, stats.TotalProperties, stats.Settled, stats.Invoiced, stats.Notified,
		stats.NoBuyers, stats.FailedSettle, stats.TotalCommission,
		duration.Round(time.Millisecond))

	for numBuyers := 0; numBuyers <= 3; numBuyers++ {
		count := stats.BuyerCounts[numBuyers]
		barLength := 0
		if stats.TotalProperties > 0 {
			barLength = count * 20 / stats.TotalProperties
		}
		bar := strings.Repeat("#", barLength)
		fmt.Printf("%d buyers: %s (%d)\n", numBuyers, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := 0.0
	if stats.TotalProperties > 0 {
		successRate = float64(stats.Settled) / float64(stats.TotalProperties) * 100
	}
	log.Info().
		Float64("success_rate", successRate).
		Int("total_properties", stats.TotalProperties).
		Int("settled", stats.Settled).
		Float64("total_commission", stats.TotalCommission).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// createPropertiesHTTP generates and submits random property listings
// Runs as a worker goroutine, sending created property IDs to propertiesChan
func createPropertiesHTTP(workerID, numProperties int, simClient *simulationClient, propertiesChan chan<- string) {
	for i := 0; i < numProperties; i++ {
		property := &types.Property{
			Title:       fmt.Sprintf("%d %s, %s", rand.Intn(200)+1, streets[rand.Intn(len(streets))], suburbs[rand.Intn(len(suburbs))]),
			Price:       float64(rand.Intn(900000) + 300000),
			SellerID:    fmt.Sprintf("SEL_%d_%04d", workerID, rand.Intn(10000)),
			SellerName:  "Sim Seller",
			SellerEmail: fmt.Sprintf("seller%d@example.com", rand.Intn(10000)),
			AgentID:     fmt.Sprintf("AGT_%d", workerID),
			AgentName:   fmt.Sprintf("Agent %d", workerID),
		}

		propertyID, err := simClient.createProperty(property)
		if err != nil {
			log.Error().Err(err).
				Str("worker_id", fmt.Sprintf("%d", workerID)).
				Str("title", property.Title).
				Msg("Failed to create property")
			continue
		}

		propertiesChan <- propertyID
		log.Info().
			Str("worker_id", fmt.Sprintf("%d", workerID)).
			Str("property_id", propertyID).
			Str("title", property.Title).
			Float64("price", property.Price).
			Msg("Property created")

		// Random sleep between listings
		time.Sleep(time.Duration(rand.Intn(500)) * time.Millisecond)
	}
}

// startServer initializes and starts the settlement API server
// Sets up all required services, handlers and routes
func startServer() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret, auth.RoleAgent)
	authService.RegisterAPICredentials("internal-service-key", "internal-service-secret", auth.RoleAdmin)

	internalToken, err := authService.GenerateToken(auth.Credentials{
		APIKey:    "internal-service-key",
		APISecret: "internal-service-secret",
	})
	if err != nil {
		return fmt.Errorf("failed to generate internal token: %w", err)
	}

	paymentsService := payments.NewService(db)
	creator := payments.NewCreator(cfg.Backend.BaseURL(), internalToken.Token, cfg.Backend.Timeout, paymentsService.GetDB())

	dispatcher := mailer.New(cfg.SMTP)
	invoiceService := invoice.NewService(db, cfg.Bank, creator, dispatcher)
	propertiesService := properties.NewService(db, invoiceService)
	messagingService := messaging.NewService(db)
	settlementService := settlement.NewService(propertiesService, invoiceService, messagingService)

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	propertiesHandlers := properties.NewGinHandlers(propertiesService)
	invoiceHandlers := invoice.NewGinHandlers(invoiceService)
	messagingHandlers := messaging.NewGinHandlers(messagingService)
	settlementHandlers := settlement.NewGinHandlers(settlementService)
	paymentsHandlers := payments.NewGinHandlers(paymentsService)

	setupRoutes(router, cfg.Auth.JWTSecret,
		authHandlers, propertiesHandlers, invoiceHandlers,
		messagingHandlers, settlementHandlers, paymentsHandlers)

	return router.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
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
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		props := v1.Group("/properties")
		props.Use(middleware.JWTAuth(jwtSecret))
		{
			props.POST("", propertiesHandlers.CreatePropertyHandler())
			props.GET("/:property_id", propertiesHandlers.GetPropertyHandler())
			props.PATCH("/:property_id/status", propertiesHandlers.UpdateStatusHandler())
			props.GET("/:property_id/buyers", propertiesHandlers.GetBuyersHandler())
			props.POST("/:property_id/buyers", propertiesHandlers.AddBuyerHandler())
		}

		settlements := v1.Group("/settlements")
		settlements.Use(middleware.JWTAuth(jwtSecret))
		{
			settlements.POST("/:property_id", settlementHandlers.SettlePropertyHandler())
		}

		invoices := v1.Group("/invoices")
		invoices.Use(middleware.JWTAuth(jwtSecret))
		{
			invoices.POST("/generate-settlement", invoiceHandlers.GenerateSettlementHandler())
			invoices.GET("/:invoice_number", invoiceHandlers.GetInvoiceHandler())
			invoices.GET("/:invoice_number/download", invoiceHandlers.DownloadInvoiceHandler())
		}

		messages := v1.Group("/messages")
		messages.Use(middleware.JWTAuth(jwtSecret))
		{
			messages.POST("", messagingHandlers.SendMessageHandler())
			messages.GET("", messagingHandlers.ListMessagesHandler())
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.InternalAuth(jwtSecret))
		{
			admin.POST("/payment-records", paymentsHandlers.CreatePaymentRecordHandler())
		}
	}
}
