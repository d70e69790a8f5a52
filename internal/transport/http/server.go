package http

import (
	"github.com/gin-gonic/gin"

	"pdfqa/internal/bootstrap"
	"pdfqa/internal/repository"
	"pdfqa/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	documentHandler := handler.NewDocumentHandler(
		docRepo,
		app.JobPublisher,
		app.VectorStore,
		app.Threads,
		app.Config.Storage.PDFDir,
		app.Config.Storage.TextDir,
	)
	qaHandler := handler.NewQAHandler(docRepo, app.Pipeline, app.Threads)

	v1 := router.Group("/api/v1")
	docs := v1.Group("/documents")
	docs.POST("/upload", documentHandler.Upload)
	docs.GET("", documentHandler.List)
	docs.GET("/:id", documentHandler.Get)
	docs.DELETE("/:id", documentHandler.Delete)
	docs.POST("/:id/ask", qaHandler.Ask)
	docs.GET("/:id/history", qaHandler.History)

	return router
}
