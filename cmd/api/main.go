package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/application/webhook_handlers"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/cache"
	"payments-webhook-layer/internal/infrastructure/encryption"
	"payments-webhook-layer/internal/infrastructure/providers"
	"payments-webhook-layer/internal/infrastructure/pubsub"
	"payments-webhook-layer/internal/infrastructure/repository"
	"payments-webhook-layer/internal/infrastructure/stream"
	"payments-webhook-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	securitymiddleware "payments-webhook-layer/internal/infrastructure/middleware"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(os.Getenv("MONGODB_DATABASE"))

	// Get encryption key
	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}

	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize repositories
	connectionRepo := repository.NewMongoConnectionRepository(db)
	eventRepo := repository.NewMongoEventRepository(db)
	credentialStore := repository.NewMongoCredentialStore(db, encryptionService)

	// Redis-backed lookup cache, optional
	var lookupCache ports.LookupCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		lookupCache, err = cache.NewRedisLookupCache(context.Background(), redisAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", redisAddr).Msg("Connection lookup cache enabled")
	}

	// Initialize application services
	connectionService := application.NewConnectionService(connectionRepo, credentialStore, lookupCache, logger)

	// Initialize verification dispatcher and register provider verifiers
	dispatcher := application.NewVerificationDispatcher(connectionService, credentialStore, logger)
	dispatcher.RegisterVerifier(providers.NewStripeVerifier(logger))
	dispatcher.RegisterVerifier(providers.NewPayPalVerifier(os.Getenv("PAYPAL_API_BASE"), logger))
	dispatcher.RegisterVerifier(providers.NewPayUVerifier(logger))
	dispatcher.RegisterVerifier(providers.NewMercadoPagoVerifier(logger))
	dispatcher.RegisterVerifier(providers.NewMetaVerifier(logger))

	mercadoPagoFetcher := providers.NewMercadoPagoFetcher(os.Getenv("MERCADOPAGO_API_BASE"), logger)

	// Kafka event stream, optional
	var publisher ports.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = stream.NewKafkaPublisher(stream.ParseBrokers(brokers), os.Getenv("KAFKA_TOPIC"), logger)
		defer publisher.Close()
		logger.Info().Str("brokers", brokers).Msg("Kafka event stream enabled")
	}

	// Initialize event pub/sub for the live event tail
	eventPubSub := pubsub.NewEventPubSub(logger)

	recorder := application.NewEventRecorder(eventRepo, publisher, eventPubSub, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Webhook endpoints: one per provider, no tenant in the path
	r.Post("/webhooks/stripe", webhook_handlers.StripeHandler(dispatcher, recorder, logger))
	r.Post("/webhooks/paypal", webhook_handlers.PayPalHandler(dispatcher, recorder, logger))
	r.Post("/webhooks/payu", webhook_handlers.PayUHandler(dispatcher, recorder, logger))
	r.Post("/webhooks/mercadopago", webhook_handlers.MercadoPagoHandler(dispatcher, recorder, credentialStore, mercadoPagoFetcher, logger))
	r.Post("/webhooks/meta", webhook_handlers.MetaHandler(dispatcher, recorder, logger))
	r.Get("/webhooks/meta", webhook_handlers.MetaChallengeHandler(connectionService, logger))

	// Admin API: connection onboarding and event inspection
	adminToken := os.Getenv("ADMIN_TOKEN")
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(securitymiddleware.AdminTokenMiddleware(adminToken, logger))

		r.Get("/providers", listProvidersHandler())
		r.Post("/connections", createConnectionHandler(connectionService, logger))
		r.Get("/connections", listConnectionsHandler(connectionService, logger))
		r.Delete("/connections/{id}", disconnectHandler(connectionService, logger))

		r.Get("/events", listEventsHandler(recorder, logger))
		r.Get("/events/stream", streamEventsHandler(eventPubSub, logger))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// listProvidersHandler returns the provider catalog with each provider's
// connectors
func listProvidersHandler() http.HandlerFunc {
	type providerEntry struct {
		domain.Provider
		Connectors []domain.Connector `json:"connectors"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		catalog := domain.Catalog()
		entries := make([]providerEntry, 0, len(catalog))
		for _, p := range catalog {
			entries = append(entries, providerEntry{Provider: p, Connectors: domain.Connectors(p.Code)})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

// createConnectionHandler onboards a tenant's provider connection
func createConnectionHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID     string            `json:"tenantId"`
			ProviderCode string            `json:"providerCode"`
			Environment  string            `json:"environment"`
			Metadata     map[string]string `json:"metadata"`
			Secrets      map[string]string `json:"secrets"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		conn, err := connections.CreateConnection(r.Context(), application.CreateConnectionInput{
			TenantID:     req.TenantID,
			ProviderCode: req.ProviderCode,
			Environment:  domain.Environment(req.Environment),
			Metadata:     req.Metadata,
			Secrets:      req.Secrets,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create connection")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(conn)
	}
}

// listConnectionsHandler lists connections, optionally by provider
func listConnectionsHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conns, err := connections.List(r.Context(), r.URL.Query().Get("provider"))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list connections")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if conns == nil {
			conns = []*domain.Connection{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conns)
	}
}

// disconnectHandler deactivates a connection
func disconnectHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := connections.Disconnect(r.Context(), id); err != nil {
			logger.Error().Err(err).Str("connectionId", id).Msg("Failed to disconnect")
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listEventsHandler returns recorded integration events, newest first
func listEventsHandler(recorder *application.EventRecorder, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ports.EventFilter{
			ConnectionID: q.Get("connectionId"),
			ProviderCode: q.Get("provider"),
			Status:       domain.EventStatus(q.Get("status")),
		}

		events, err := recorder.Events(r.Context(), filter)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list events")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []*domain.IntegrationEvent{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	}
}

// streamEventsHandler tails integration events over server-sent events
func streamEventsHandler(ps *pubsub.EventPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		var filter *pubsub.EventFilter
		q := r.URL.Query()
		if q.Get("provider") != "" || q.Get("connectionId") != "" {
			filter = &pubsub.EventFilter{ConnectionID: q.Get("connectionId")}
			if p := q.Get("provider"); p != "" {
				filter.Providers = []string{p}
			}
		}

		channel := ps.Subscribe(r.Context(), filter)
		defer ps.Unsubscribe(channel.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-channel.Done:
				return
			case event, open := <-channel.Events:
				if !open {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode event for stream")
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}
