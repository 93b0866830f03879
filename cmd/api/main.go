package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/cartclient"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/gateway"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/httpapi"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/ledger"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/lifecycle"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/profileclient"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/resolver"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/storage"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvHours(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return time.Duration(hours) * time.Hour
}

func main() {
	log.Println("fulfillment api starting...")

	httpPort := getEnv("HTTP_PORT", "8080")
	requestTimeout := 30 * time.Second
	shutdownTimeout := 10 * time.Second

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}
	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "fulfillment"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := cartclient.ConnectMongoDB(ctx,
		getEnv("MONGO_URI", "mongodb://localhost:27017"),
		getEnv("MONGO_DB", "storefront"))
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	cartProvider := cartclient.NewMongoProvider(mongoDB)

	proofStore, err := storage.NewProofStore(getEnv("PROOF_DIR", "./data/proofs"))
	if err != nil {
		log.Fatalf("Failed to create proof store: %v", err)
	}

	stockLedger := ledger.NewLedger(repo)
	storeSource := resolver.NewCachedStoreSource(repo, repo.DB(), redisClient)
	storeResolver := resolver.NewResolver(storeSource, stockLedger)
	profile := profileclient.NewClient(getEnv("PROFILE_SERVICE_URL", "http://localhost:8081"))
	charger := gateway.NewClient(
		getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8090"),
		getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/webhooks/payment"))

	cfg := lifecycle.DefaultConfig()
	cfg.PaymentWindow = getEnvHours("PAYMENT_WINDOW_HOURS", cfg.PaymentWindow)
	cfg.AutoConfirmAfter = getEnvHours("AUTO_CONFIRM_HOURS", cfg.AutoConfirmAfter)

	svc := lifecycle.NewService(
		repo, stockLedger, storeResolver,
		cartProvider, profile, profile, charger, proofStore, cfg)

	router := httpapi.NewRouter(httpapi.NewOrderHandler(svc), requestTimeout)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(router, "fulfillment-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("fulfillment api listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
