package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerboard/internal/auth"
	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/engine"
	"github.com/danmuck/peerboard/internal/observability"
	"github.com/danmuck/peerboard/internal/store"
)

// RoomStatus is what the UI shows around the board.
type RoomStatus struct {
	Topic     string `json:"topic"`
	Phase     string `json:"phase"`
	Peers     int    `json:"peers"`
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	IsCreator bool   `json:"isCreator"`
}

// Room is the host the api runs against.
type Room interface {
	Status(ctx context.Context) (RoomStatus, error)
	Call(ctx context.Context, fn func(*engine.Engine) error) error
}

// Server serves the board api for one room.
type Server struct {
	cfg     Config
	room    Room
	hub     *Hub
	router  *gin.Engine
	started time.Time
}

func NewServer(cfg Config, room Room, hub *Hub) *Server {
	cfg = cfg.WithDefaults()
	if hub == nil {
		hub = NewHub()
	}
	hub.AllowOrigins(cfg.CORSOrigins)
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestObserver(cfg.NodeName, log.Logger, "/health", "/metrics", "/events"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{cfg: cfg, room: room, hub: hub, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine { return s.router }
func (s *Server) Hub() *Hub           { return s.hub }

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("api.Server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("api.Server shutdown")
		}
		return nil
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type taskRequest struct {
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	To         string   `json:"to"`
	Categories []string `json:"categories"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
}

type editRequest struct {
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	To         string   `json:"to"`
	Categories []string `json:"categories"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type categoryView struct {
	Name  board.Category `json:"name"`
	Color string         `json:"color"`
}

func (s *Server) registerRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "peerboard-api",
			"version":   "0.1.0",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/events", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	r.GET("/categories", func(c *gin.Context) {
		out := make([]categoryView, 0, len(board.Categories()))
		for _, cat := range board.Categories() {
			out = append(out, categoryView{Name: cat, Color: cat.Color()})
		}
		c.JSON(http.StatusOK, gin.H{"categories": out})
	})

	r.GET("/room", func(c *gin.Context) {
		st, err := s.room.Status(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})

	r.GET("/state", func(c *gin.Context) {
		var snap store.Snapshot
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			snap = e.Snapshot()
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	r.GET("/todos/:id", func(c *gin.Context) {
		id := c.Param("id")
		var view store.TaskView
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			v, ok := e.Task(id)
			if !ok {
				return engine.ErrUnknownTask
			}
			view = v
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	})

	// Mutating routes require the api token when one is configured.
	guarded := r.Group("")
	if s.cfg.Token != "" {
		guarded.Use(requireToken(auth.StaticToken{Token: s.cfg.Token}))
	}

	guarded.POST("/name", func(c *gin.Context) {
		var req nameRequest
		if !bind(c, &req) {
			return
		}
		var name string
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			var err error
			name, err = e.SetName(req.Name)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name})
	})

	guarded.POST("/todos", func(c *gin.Context) {
		var req taskRequest
		if !bind(c, &req) {
			return
		}
		draft := board.TaskDraft{
			Title:      req.Title,
			Body:       req.Message,
			To:         req.To,
			Categories: req.Categories,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
		}
		var task board.Task
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			var err error
			task, err = e.AddTask(draft)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	})

	guarded.PUT("/todos/:id", func(c *gin.Context) {
		id := c.Param("id")
		var req editRequest
		if !bind(c, &req) {
			return
		}
		edit := board.TaskEdit{Title: req.Title, Body: req.Message, To: req.To, Categories: req.Categories}
		var task board.Task
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			var err error
			task, err = e.EditTask(id, edit)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	})

	guarded.DELETE("/todos/:id", func(c *gin.Context) {
		id := c.Param("id")
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			return e.DeleteTask(id)
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
	})

	guarded.POST("/todos/:id/pin", func(c *gin.Context) {
		id := c.Param("id")
		var pinned bool
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			var err error
			pinned, err = e.PinTask(id)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "pinned": pinned})
	})

	guarded.POST("/todos/:id/comments", func(c *gin.Context) {
		id := c.Param("id")
		var req commentRequest
		if !bind(c, &req) {
			return
		}
		var comment board.Comment
		err := s.room.Call(c.Request.Context(), func(e *engine.Engine) error {
			var err error
			comment, err = e.AddComment(id, req.Comment)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, comment)
	})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"notice": "Malformed request."})
		return false
	}
	return true
}

func requireToken(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Check(v, c.GetHeader("Authorization")); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"notice": "Unauthorized."})
			return
		}
		c.Next()
	}
}
