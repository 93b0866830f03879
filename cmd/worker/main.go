// The worker runs the background side of the fulfillment engine: the
// reconciliation sweeps, the outbox poller and the notification consumer.
// It shares no in-process state with the api; everything goes through
// postgres and kafka.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/cartclient"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/gateway"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/jobs"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/ledger"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/lifecycle"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/notify"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/outbox"
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
	log.Println("fulfillment worker starting...")

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}
	creds := &repository.Credentials{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "fulfillment"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})
	defer redisClient.Close()

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := cartclient.ConnectMongoDB(connectCtx,
		getEnv("MONGO_URI", "mongodb://localhost:27017"),
		getEnv("MONGO_DB", "storefront"))
	cancelConnect()
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

	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := jobs.NewSweeper(svc)
	go sweeper.Run(ctx)

	poller := outbox.NewPoller(repo, brokers...)
	defer poller.Close()
	go poller.Run(ctx)

	consumer := notify.NewConsumer(notify.LogMailer{}, brokers...)
	defer consumer.Close()
	go consumer.Run(ctx)

	log.Println("fulfillment worker running")
	<-ctx.Done()
	log.Println("fulfillment worker stopped")
}
