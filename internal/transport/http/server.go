package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "docbrain/internal/app"
	"docbrain/internal/bootstrap"
	"docbrain/internal/cache"
	"docbrain/internal/chunker"
	"docbrain/internal/embedding"
	"docbrain/internal/llm"
	"docbrain/internal/platform/rabbitmq"
	"docbrain/internal/repository"
	"docbrain/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	topicRepo := repository.NewTopicRepository(app.MySQL)
	mergedRepo := repository.NewMergedChunkRepository(app.MySQL)
	embeddingRepo := repository.NewEmbeddingRepository(app.MySQL)
	settingRepo := repository.NewSettingRepository(app.MySQL)

	settingCache := cache.NewSettingCache(app.Redis, settingRepo, time.Duration(cfg.Redis.SettingTTLSeconds)*time.Second)
	mergeLock := cache.NewMergeLock(app.Redis, time.Duration(cfg.Redis.MergeLockSeconds)*time.Second)
	gateway := llm.NewGateway(settingCache, cfg.LLM)
	embedder := embedding.NewEngine(settingCache, cfg.Embedding, cfg.Pipeline.EmbeddingBatchSize)

	ingestService := appsvc.NewIngestService(
		documentRepo, chunkRepo, embeddingRepo, topicRepo, embedder, gateway,
		chunker.Options{MinSize: cfg.Pipeline.ChunkMinSize, MaxSize: cfg.Pipeline.ChunkMaxSize},
	)
	documentService := appsvc.NewDocumentService(documentRepo, chunkRepo, embeddingRepo, topicRepo)
	topicService := appsvc.NewTopicService(topicRepo, mergedRepo)
	mergeService := appsvc.NewMergeService(topicRepo, chunkRepo, mergedRepo, gateway, mergeLock)
	exploreService := appsvc.NewExploreService(chunkRepo, embeddingRepo, documentRepo, embedder, gateway, cfg.Pipeline.SearchTopK)
	settingService := appsvc.NewSettingService(settingRepo, settingCache)
	publisher := rabbitmq.NewIngestPublisher(app.MQConn, cfg.RabbitMQ.IngestQueue)

	documentHandler := handler.NewDocumentHandler(ingestService, documentService, publisher)
	topicHandler := handler.NewTopicHandler(topicService, mergeService)
	exploreHandler := handler.NewExploreHandler(exploreService)
	settingHandler := handler.NewSettingHandler(settingService)

	v1 := router.Group("/api/v1")

	docGroup := v1.Group("/documents")
	docGroup.POST("", documentHandler.Create)
	docGroup.POST("/upload", documentHandler.UploadPDF)
	docGroup.GET("", documentHandler.List)
	docGroup.GET("/:id", documentHandler.Get)
	docGroup.DELETE("/:id", documentHandler.Delete)

	topicGroup := v1.Group("/topics")
	topicGroup.GET("", topicHandler.List)
	topicGroup.POST("/:id/merge", topicHandler.Merge)
	topicGroup.GET("/:id/merged", topicHandler.MergedChunks)

	v1.POST("/explore", exploreHandler.Search)

	settingGroup := v1.Group("/settings")
	settingGroup.GET("", settingHandler.Get)
	settingGroup.PUT("/llm", settingHandler.UpdateLLM)
	settingGroup.PUT("/embedding", settingHandler.UpdateEmbedding)

	return router
}
