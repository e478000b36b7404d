package httpapi

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/reboot-tools/gradboard/internal/webui"
)

// NewRouter builds the gin engine with the API routes and the embedded
// frontend mounted.
func NewRouter(h *Handler, bundle *webui.Bundle) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger)

	engine.GET("/healthz", h.Healthz)
	engine.POST("/api/login", h.Login)

	authed := engine.Group("/api")
	authed.Use(h.RequireSession)
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/profile", h.Profile)
		authed.GET("/audits", h.Audits)
		authed.GET("/xp", h.XP)
		authed.GET("/skills", h.Skills)
	}

	registerFrontend(engine, bundle)
	return engine
}

// registerFrontend serves the embedded assets and falls back to index.html
// for UI paths so browser reloads land on the single page.
func registerFrontend(engine *gin.Engine, bundle *webui.Bundle) {
	fileServer := http.FileServer(http.FS(bundle.StaticFS))

	engine.StaticFS("/static", http.FS(bundle.StaticFS))
	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", bundle.IndexHTML)
	})

	engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		requestPath := c.Request.URL.Path
		if isAPIRoute(requestPath) {
			c.Status(http.StatusNotFound)
			return
		}
		filePath := strings.TrimPrefix(path.Clean("/"+requestPath), "/")
		if filePath != "" {
			fileInfo, errStat := fs.Stat(bundle.StaticFS, filePath)
			if errStat == nil && !fileInfo.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
			if strings.Contains(path.Base(filePath), ".") {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", bundle.IndexHTML)
	})
}

// isAPIRoute reports whether the path belongs to the JSON API rather than
// the frontend.
func isAPIRoute(requestPath string) bool {
	return requestPath == "/api" || strings.HasPrefix(requestPath, "/api/") || requestPath == "/healthz"
}

// Serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func Serve(ctx context.Context, engine *gin.Engine, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", srv.Addr)
		if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
			errCh <- errListen
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
		return <-errCh
	case errServe := <-errCh:
		return errServe
	}
}
