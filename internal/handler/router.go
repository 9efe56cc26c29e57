package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// NewRouter serves WebSocket routes through gorilla/mux and hands every
// other request to the gin API engine.
func NewRouter(httpHandler *Handler, wsHandler *WSHandler, logger zerolog.Logger) http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(pkglog.GinMiddleware(logger))

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	httpHandler.RegisterRoutes(engine)

	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(pkglog.HTTPMiddleware(logger)))
	wsHandler.RegisterRoutes(router)
	router.NotFoundHandler = engine
	router.MethodNotAllowedHandler = engine

	return router
}
