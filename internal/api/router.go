package api

import (
	routes "mapworkbench/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes all application routes
func SetupRouter(r *gin.Engine, deps routes.Deps) {
	h := routes.New(deps)

	// Multipart bodies above this spill to disk
	r.MaxMultipartMemory = deps.Uploads.MaxBytes() + 1<<20

	r.Static("/uploads", deps.Uploads.Dir())

	h.SetupHealthHandlers(r.Group(""))

	api := r.Group("/api")
	h.SetupUploadHandlers(api)
	h.SetupCompositionHandlers(api)
	h.SetupLookupHandlers(api)
	h.SetupSessionHandlers(api)
}

// NewEngine returns a gin engine with the default logger and recovery
// middleware and every route registered
func NewEngine(deps routes.Deps) *gin.Engine {
	r := gin.Default()
	SetupRouter(r, deps)
	return r
}
