package suggest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/apierr"
)

const (
	suggestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Response is the body of GET /suggest.
type Response struct {
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewRouter returns the gin engine serving suggestions.
func NewRouter(s *Suggester) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.GET("/suggest", s.handle)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func (s *Suggester) handle(c *gin.Context) {
	query := c.Query("q")
	ctx, cancel := context.WithTimeout(c.Request.Context(), suggestTimeout)
	defer cancel()

	suggestions, err := s.Suggest(ctx, query)
	if err != nil {
		logutil.GetLogger(ctx).Warn("suggest failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: apierr.Message(err), Kind: apierr.KindOf(err).String()})
		return
	}
	c.JSON(http.StatusOK, Response{Query: query, Suggestions: suggestions})
}

// Serve runs the suggestion server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, s *Suggester) error {
	gin.SetMode(gin.ReleaseMode)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: NewRouter(s), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logutil.GetLogger(ctx).Info("suggest server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logutil.GetLogger(ctx).Info("suggest server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
