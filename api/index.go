package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/observability"
	"budget-insight-api/pkg/server"

	"github.com/gin-gonic/gin"
)

var (
	app     *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp builds the router once per function instance.
// Environment variables come from the platform, so godotenv is not used here.
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		cfg := config.LoadConfig()
		observability.InitTracer(cfg)

		a, err := server.New(context.Background(), cfg)
		if err != nil {
			initErr = err
			log.Printf("❌ [setupApp] %v", err)
			return
		}
		app = a.Router()
		log.Printf("✅ [setupApp] application initialized")
	})
	return app, initErr
}

// Handler is the serverless entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	engine, err := setupApp()
	if err != nil {
		http.Error(w, `{"success":false,"error":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	engine.ServeHTTP(w, r)
}
