package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docbrain/internal/app"
	"docbrain/internal/cache"
	"docbrain/internal/chunker"
	"docbrain/internal/config"
	"docbrain/internal/embedding"
	"docbrain/internal/llm"
	"docbrain/internal/model"
	mysqlClient "docbrain/internal/platform/mysql"
	rabbitmqClient "docbrain/internal/platform/rabbitmq"
	redisClient "docbrain/internal/platform/redis"
	"docbrain/internal/repository"
	"docbrain/internal/worker"
)

type App struct {
	Config       *config.Config
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.Topic{},
		&model.ChunkTopic{},
		&model.MergedChunk{},
		&model.ChunkEmbedding{},
		&model.LLMSetting{},
		&model.EmbeddingSetting{},
	); err != nil {
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

	documentRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	topicRepo := repository.NewTopicRepository(mysqlDB)
	embeddingRepo := repository.NewEmbeddingRepository(mysqlDB)
	settingRepo := repository.NewSettingRepository(mysqlDB)
	settingCache := cache.NewSettingCache(redisCli, settingRepo, time.Duration(cfg.Redis.SettingTTLSeconds)*time.Second)

	gateway := llm.NewGateway(settingCache, cfg.LLM)
	embedder := embedding.NewEngine(settingCache, cfg.Embedding, cfg.Pipeline.EmbeddingBatchSize)
	ingestService := app.NewIngestService(
		documentRepo, chunkRepo, embeddingRepo, topicRepo, embedder, gateway,
		chunker.Options{MinSize: cfg.Pipeline.ChunkMinSize, MaxSize: cfg.Pipeline.ChunkMaxSize},
	)

	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
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
