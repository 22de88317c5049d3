package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/reliefhub/stock-service/config"
	"github.com/reliefhub/stock-service/internal/item"
	"github.com/reliefhub/stock-service/internal/location"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/transport"
	"github.com/reliefhub/stock-service/pkg/broker"
	"github.com/reliefhub/stock-service/pkg/cache"
	mongodb "github.com/reliefhub/stock-service/pkg/database/mongo"
	"github.com/reliefhub/stock-service/pkg/database/postgres"
	"github.com/reliefhub/stock-service/pkg/logger"
	"github.com/reliefhub/stock-service/pkg/search"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	itemH "github.com/reliefhub/stock-service/internal/item/handler"
	itemRepoPkg "github.com/reliefhub/stock-service/internal/item/repository"
	itemUCPkg "github.com/reliefhub/stock-service/internal/item/usecase"

	locH "github.com/reliefhub/stock-service/internal/location/handler"
	locRepoPkg "github.com/reliefhub/stock-service/internal/location/repository"
	locUCPkg "github.com/reliefhub/stock-service/internal/location/usecase"

	stockH "github.com/reliefhub/stock-service/internal/stock/handler"
	stockListenerPkg "github.com/reliefhub/stock-service/internal/stock/listener"
	stockRepoPkg "github.com/reliefhub/stock-service/internal/stock/repository"
	"github.com/reliefhub/stock-service/internal/stock/sweeper"
	stockUCPkg "github.com/reliefhub/stock-service/internal/stock/usecase"
)

type repositories struct {
	items     item.Repository
	locations location.Repository
	stock     stock.Repository
	close     func()
}

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to the store and initialize repositories
	repos, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Could not open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer repos.close()

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Elasticsearch (optional)
	var indexer itemUCPkg.Indexer
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, catalog search falls back to the store", zap.Error(err))
	} else {
		indexer = esClient
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 7. Initialize UseCases
	itemUC := itemUCPkg.NewItemUseCase(repos.items, redisClient, indexer, appLogger)
	locUC := locUCPkg.NewLocationUseCase(repos.locations, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(repos.stock, redisClient, itemUC, locUC, stockUCPkg.Options{
		AllowOverReservation: cfg.Stock.AllowOverReservation,
		LockTTL:              cfg.Stock.LockTTL,
	}, appLogger)

	// 8. Start background workers
	stockListener := stockListenerPkg.NewStockListener(kafkaConsumer, stockUC, appLogger)
	go stockListener.Start(ctx)
	go sweeper.New(stockUC, cfg.Stock.ExpirySweepInterval, appLogger).Run(ctx)

	// 9. Initialize Handlers
	itemHandler := itemH.NewItemHandler(itemUC, appLogger)
	locHandler := locH.NewLocationHandler(locUC, appLogger)
	stockHandler := stockH.NewStockHandler(stockUC, appLogger)

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			transport.ContextInterceptor(),
			transport.LoggingInterceptor(appLogger),
		),
	)

	itemH.RegisterItemServiceServer(grpcServer, itemHandler)
	locH.RegisterLocationServiceServer(grpcServer, locHandler)
	stockH.RegisterStockServiceServer(grpcServer, stockHandler)

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, appLogger logger.ZapLogger) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		itemRepo := itemRepoPkg.NewPGRepository(db)
		locRepo := locRepoPkg.NewPGRepository(db)
		stockRepo := stockRepoPkg.NewPGRepository(db)
		for _, s := range []interface{ EnsureSchema(context.Context) error }{itemRepo, locRepo, stockRepo} {
			if err := s.EnsureSchema(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
		return &repositories{
			items:     itemRepo,
			locations: locRepo,
			stock:     stockRepo,
			close:     func() { db.Close() },
		}, nil

	case config.DriverMongo:
		db, err := mongodb.NewDatabase(ctx, &mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		itemRepo := itemRepoPkg.NewMongoRepository(db)
		locRepo := locRepoPkg.NewMongoRepository(db)
		stockRepo := stockRepoPkg.NewMongoRepository(db)
		for _, s := range []interface{ EnsureIndexes(context.Context) error }{itemRepo, locRepo, stockRepo} {
			if err := s.EnsureIndexes(ctx); err != nil {
				_ = db.Client().Disconnect(context.Background())
				return nil, err
			}
		}
		appLogger.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))
		return &repositories{
			items:     itemRepo,
			locations: locRepo,
			stock:     stockRepo,
			close:     func() { _ = db.Client().Disconnect(context.Background()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
