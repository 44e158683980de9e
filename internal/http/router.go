package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"oddeven-service/internal/config"
)

// NewRouter builds the gin engine with CORS and all routes registered.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	h.Register(r, AuthMiddleware(cfg.Auth.JWTSecret))
	return r
}
