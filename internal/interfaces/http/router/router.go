package router

import "github.com/gin-gonic/gin"

// Registrar is implemented by handlers that attach routes to a group
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount attaches all handlers under the versioned API prefix
func Mount(engine *gin.Engine, version string, registrars ...Registrar) {
	api := engine.Group("/api/" + version)
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}
}
