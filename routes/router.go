package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"redlink/config"
	"redlink/graph"
	"redlink/middleware"
	"redlink/services"
	"redlink/utils"
)

// SetupRouter wires the HTTP surface: a health endpoint plus the single
// /graphql endpoint carrying every query and mutation.
func SetupRouter(cfg config.AppConfig, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	sessions := utils.NewSessionStore(rdb)
	resets := utils.NewResetTokenStore(rdb)
	mailer := utils.NewSMTPMailer(cfg)

	postService := services.NewPostService(db)
	userService := services.NewUserService(db, resets, mailer, cfg.ClientOrigin)

	schema := graphql.MustParseSchema(graph.Schema, graph.NewResolver(postService, userService), graphql.MaxDepth(16))
	handler := &relay.Handler{Schema: schema}

	gql := r.Group("/graphql")
	gql.Use(middleware.RateLimitMiddleware(cfg), middleware.SessionMiddleware(sessions, cfg))
	gql.POST("", func(c *gin.Context) {
		// fresh batched loaders per request; discarded with the response
		ctx := graph.WithLoaders(c.Request.Context(), db)
		handler.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	})

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
