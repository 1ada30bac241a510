package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeloft/codeloft/pkg/config"
	"github.com/codeloft/codeloft/pkg/db"
	"github.com/codeloft/codeloft/pkg/event"
	"github.com/codeloft/codeloft/pkg/handler"
	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/runtime"
	"github.com/codeloft/codeloft/pkg/store"
	"github.com/codeloft/codeloft/pkg/utils"
)

type Server struct {
	ginEngine *gin.Engine
	logger    *slog.Logger
	cfg       *config.AppConfig

	workbench *store.WorkbenchStore
	port      int
}

func NewServer(cfg *config.AppConfig) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	// CORS middleware for browser clients on common dev origins.
	ginEngine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// No Origin header means it's not a browser CORS request.
		if origin != "" {
			allowed := strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1") ||
				strings.HasPrefix(origin, "https://localhost") ||
				strings.HasPrefix(origin, "https://127.0.0.1")

			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			} else {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	return &Server{
		ginEngine: ginEngine,
		logger:    utils.GetLogger(),
		cfg:       cfg,
	}
}

// SetupRoutes wires the state database, the local runtime, the file
// mirror and the workbench, then registers the API surface.
func (s *Server) SetupRoutes(ctx context.Context) error {
	gdb, err := db.Open(s.cfg.StateDB())
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}

	rt, err := runtime.NewLocalRuntime(s.cfg.Workdir())
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	files := store.NewFilesStore(rt, store.NewDeletionLedger(gdb), store.FilesStoreOptions{
		WatchWindow:  time.Duration(s.cfg.WatchWindowMs()) * time.Millisecond,
		WatchExclude: s.cfg.WatchExclude(),
	})
	if err := files.Init(ctx); err != nil {
		return fmt.Errorf("init file mirror: %w", err)
	}

	s.workbench = store.NewWorkbenchStore(rt, files)

	fsHandler := handler.NewFSHandler(s.workbench)
	artifactHandler := handler.NewArtifactHandler(s.workbench)
	snapshotHandler := handler.NewSnapshotHandler(s.workbench, rt.Workdir())
	wsHandler := event.NewWSHandler()

	apiGroup := s.ginEngine.Group("/api")

	// Runtime info so clients can discover their base URLs.
	apiGroup.GET("/runtime", func(c *gin.Context) {
		host := "127.0.0.1"
		port := s.port
		if port == 0 {
			port = s.cfg.Port()
		}
		c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: gin.H{
			"http_base_url": fmt.Sprintf("http://%s:%d", host, port),
			"ws_base_url":   fmt.Sprintf("ws://%s:%d", host, port),
			"port":          port,
			"workdir":       rt.Workdir(),
		}})
	})

	// File mirror API routes
	// /api/files
	filesGroup := apiGroup.Group("/files")
	filesGroup.GET("", fsHandler.Snapshot)
	filesGroup.GET("/content", fsHandler.FileContent)
	filesGroup.POST("", fsHandler.CreateFile)
	filesGroup.DELETE("", fsHandler.DeleteFile)
	filesGroup.GET("/modified", fsHandler.Modified)
	filesGroup.GET("/diff", fsHandler.Diffs)
	filesGroup.POST("/checkpoint", fsHandler.ResetCheckpoint)

	// /api/folders
	apiGroup.POST("/folders", fsHandler.CreateFolder)
	apiGroup.DELETE("/folders", fsHandler.DeleteFolder)

	// Artifact and action API routes
	// /api/artifacts
	artifactsGroup := apiGroup.Group("/artifacts")
	artifactsGroup.POST("", artifactHandler.Register)
	artifactsGroup.GET(":messageId", artifactHandler.Get)
	artifactsGroup.PATCH(":messageId", artifactHandler.Update)

	// /api/actions
	actionsGroup := apiGroup.Group("/actions")
	actionsGroup.POST("", artifactHandler.SubmitAction)
	actionsGroup.POST("/run", artifactHandler.RunAction)

	// Project export
	apiGroup.GET("/snapshot.zip", snapshotHandler.DownloadZip)

	// Event notifications over WebSocket
	apiGroup.GET("/events/ws", wsHandler.Handle)

	return nil
}

func (s *Server) Start(ctx context.Context) error {
	// CODELOFT_PORT overrides the configured port.
	port := s.cfg.Port()
	if v := os.Getenv("CODELOFT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			port = p
		} else {
			s.logger.Warn("Invalid CODELOFT_PORT value, falling back to config", "value", v)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), port)
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Listen first so an occupied port fails immediately.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = port
	}
	s.logger.Info("Server listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Past the startup window nobody reads errChan; a dying
			// server must not go silent.
			s.logger.Error("Server terminated unexpectedly", "error", err)
		}
		errChan <- err
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if s.workbench != nil {
			s.workbench.Close()
			s.workbench.Files().Close()
		}
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}
