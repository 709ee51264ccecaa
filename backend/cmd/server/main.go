package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"snap-backend/backend/internal/account"
	"snap-backend/backend/internal/store"
	"snap-backend/backend/pkg/config"
	"snap-backend/backend/pkg/logger"
	"snap-backend/backend/snap"

	serrors "snap-backend/backend/pkg/errors"
)

func main() {
	// Load configuration first so the logger knows the environment
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	app, err := snap.Open(cfg)
	if err != nil {
		log.Fatal("Failed to open backend", zap.Error(err))
	}
	defer app.Close()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	registerRoutes(router, app, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited")
}

func registerRoutes(router *gin.Engine, app *snap.Snap, log *zap.Logger) {
	api := router.Group("/api")
	{
		api.POST("/register", func(c *gin.Context) {
			var req struct {
				UserName        string       `json:"userName" binding:"required"`
				Password        string       `json:"password" binding:"required"`
				PasswordConfirm string       `json:"passwordConfirm" binding:"required"`
				Builders        []string     `json:"builders"`
				Extra           store.Record `json:"extra"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			input := account.RegisterInput{
				UserName:        req.UserName,
				Password:        req.Password,
				PasswordConfirm: req.PasswordConfirm,
				Extra:           req.Extra,
			}
			acct, err := app.Users.Register(c.Request.Context(), input, req.Builders)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, acct)
		})

		api.POST("/login", func(c *gin.Context) {
			var req struct {
				UserName string `json:"userName" binding:"required"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			acct, err := app.Users.Login(c.Request.Context(), account.Credentials{
				UserName: req.UserName,
				Password: req.Password,
			})
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, acct)
		})

		api.POST("/logout", func(c *gin.Context) {
			acct, err := app.Users.Logout(c.Request.Context(), bearerToken(c))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, acct)
		})

		api.GET("/users", func(c *gin.Context) {
			filter := store.Record{}
			if userName := c.Query("userName"); userName != "" {
				filter[store.KeyUserName] = userName
			}
			if online := c.Query("online"); online != "" {
				filter[store.KeyOnline] = online == "true"
			}

			users, err := app.Users.Get(c.Request.Context(), bearerToken(c), filter, c.QueryArray("reducers"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, users)
		})

		api.POST("/users/connect", func(c *gin.Context) {
			var req struct {
				From string `json:"from" binding:"required"`
				To   string `json:"to" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			to, err := app.Users.Connect(c.Request.Context(), bearerToken(c), req.From, req.To)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, to)
		})

		api.POST("/users/disconnect", func(c *gin.Context) {
			var req struct {
				From string `json:"from" binding:"required"`
				To   string `json:"to" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			to, err := app.Users.Disconnect(c.Request.Context(), bearerToken(c), req.From, req.To)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, to)
		})

		api.POST("/content", func(c *gin.Context) {
			var req struct {
				Text     string       `json:"text"`
				Payload  store.Record `json:"payload"`
				Builders []string     `json:"builders"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			var (
				item store.Record
				err  error
			)
			if req.Payload != nil {
				item, err = app.Content.Create(c.Request.Context(), bearerToken(c), req.Payload, req.Builders)
			} else {
				item, err = app.Content.CreateText(c.Request.Context(), bearerToken(c), req.Text, req.Builders)
			}
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, item)
		})

		api.GET("/content", func(c *gin.Context) {
			filter := store.Record{}
			if creator := c.Query("creatorId"); creator != "" {
				filter[store.KeyCreatorID] = creator
			}

			items, err := app.Content.Get(c.Request.Context(), bearerToken(c), filter, c.QueryArray("reducers"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		api.PUT("/content", func(c *gin.Context) {
			var req struct {
				Payload  store.Record `json:"payload" binding:"required"`
				Builders []string     `json:"builders"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			item, err := app.Content.Update(c.Request.Context(), bearerToken(c), req.Payload, req.Builders)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, item)
		})
	}
}

// bearerToken extracts the token from the Authorization header; a missing
// header yields the empty token, which every service rejects as
// authentication_failed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// respondError maps the error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch serrors.TypeOf(err) {
	case serrors.ErrorTypeInvalidInput:
		status = http.StatusBadRequest
	case serrors.ErrorTypeDuplicateAccount:
		status = http.StatusConflict
	case serrors.ErrorTypeAuthenticationFailed:
		status = http.StatusUnauthorized
	case serrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case serrors.ErrorTypeStoreFailure:
		log.Error("Store failure", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()))
	}
}
