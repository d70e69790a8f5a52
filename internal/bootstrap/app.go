package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdfqa/internal/ai"
	"pdfqa/internal/config"
	"pdfqa/internal/conversation"
	"pdfqa/internal/indexer"
	"pdfqa/internal/model"
	"pdfqa/internal/pipeline"
	mysqlClient "pdfqa/internal/platform/mysql"
	rabbitmqClient "pdfqa/internal/platform/rabbitmq"
	redisClient "pdfqa/internal/platform/redis"
	"pdfqa/internal/repository"
	"pdfqa/internal/vectorstore"
	"pdfqa/internal/worker"
)

// App wires the shared clients and the core services once at process start;
// handlers receive them as explicit dependencies.
type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	AI           *ai.Client
	VectorStore  *vectorstore.Store
	Threads      conversation.Store
	Pipeline     *pipeline.Pipeline
	JobPublisher indexer.JobPublisher
	IndexWorker  *worker.IndexWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	for _, dir := range []string{cfg.Storage.PDFDir, cfg.Storage.TextDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s failed: %w", dir, err)
		}
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.VectorCollection{}, &model.VectorChunk{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(ai.ClientConfig{
		BaseURL:          cfg.LLM.BaseURL,
		APIKey:           cfg.LLM.APIKey,
		ChatModel:        cfg.LLM.Model,
		EmbeddingModel:   cfg.LLM.EmbeddingModel,
		RequestTimeout:   time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second,
		TransientRetries: cfg.LLM.TransientRetries,
	})

	vectorRepo := repository.NewVectorRepository(mysqlDB)
	store := vectorstore.New(vectorRepo, aiClient, cfg.RAG.EmbedBatchSize)

	historyCache := conversation.NewRedisCache(redisCli, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	threads := conversation.NewCachedStore(conversation.NewMemoryStore(), historyCache)

	qaPipeline := pipeline.New(store, aiClient, threads, cfg.RAG.TopK)

	orchestrator := indexer.NewOrchestrator(store, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	indexWorker := worker.NewIndexWorker(mqConn, orchestrator, cfg.RabbitMQ.IndexQueue)
	if err := indexWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start index worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		AI:           aiClient,
		VectorStore:  store,
		Threads:      threads,
		Pipeline:     qaPipeline,
		JobPublisher: rabbitmqClient.NewIndexJobPublisher(mqConn, cfg.RabbitMQ.IndexQueue),
		IndexWorker:  indexWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IndexWorker != nil {
		a.IndexWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
