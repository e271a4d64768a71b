package handler

import (
	"net/http"
	"time"

	"admin-dashboard/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	GinMode     string
	CORSOrigins []string
	// Auth guards every /api route except /api/health. Nil disables auth.
	Auth gin.HandlerFunc
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(accessLog())

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	engine.Use(cors.New(corsCfg))

	api := engine.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	secured := api.Group("")
	if opts.Auth != nil {
		secured.Use(opts.Auth)
	}
	{
		secured.GET("/profiles", h.ListProfiles)
		secured.GET("/pagination", h.PageWindow)
		secured.POST("/validate/:profile", h.ValidateImage)
		secured.POST("/uploads/:profile", h.UploadImage)
		secured.GET("/uploads", h.ListUploads)
		secured.GET("/uploads/:id", h.GetUpload)
		secured.DELETE("/uploads/:id", h.DeleteUpload)
	}

	return engine
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
