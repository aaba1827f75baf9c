package server

import (
	"budget-insight-api/pkg/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router builds the gin engine serving app.
func (app *App) Router() *gin.Engine {
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	predictionHandler := handlers.NewPredictionHandler(app.Prediction)
	datasetHandler := handlers.NewDatasetHandler(app.Datasets)
	adminHandler := handlers.NewAdminHandler(app.Config, app.Store, app.Classifier.Name())
	monitoringHandler := handlers.NewMonitoringHandler(app.Monitoring)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-KEY", "X-Request-Id")
	corsConfig.ExposeHeaders = []string{"X-Request-Id"}

	r.Use(handlers.RequestID())
	r.Use(handlers.Tracing())
	if app.Config.MetricsEnabled {
		r.Use(app.Metrics.GinMiddleware())
	}
	r.Use(app.Monitoring.LoggingMiddleware())
	r.Use(cors.New(corsConfig))

	r.GET("/", handlers.Hello)
	r.GET("/health", adminHandler.HealthCheck)
	r.POST("/predict-category", predictionHandler.PredictCategory)
	if app.Config.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/predict-category", predictionHandler.PredictCategory)

		ds := v1.Group("/dataset")
		{
			ds.GET("/summary", datasetHandler.Summary)
			ds.GET("/categories", datasetHandler.Categories)
			ds.POST("/analyze", datasetHandler.Analyze)
		}

		admin := v1.Group("/admin")
		admin.Use(handlers.APIKeyAuth(app.Config.APIKey))
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
			admin.POST("/dataset/reload", datasetHandler.Reload)
		}

		monitoring := v1.Group("/monitoring")
		monitoring.Use(handlers.APIKeyAuth(app.Config.APIKey))
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	return r
}
