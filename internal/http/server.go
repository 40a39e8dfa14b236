package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mindmate/internal/core"
)

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to an http.Server.
type Server struct {
	Chat          *core.ChatService
	Agent         AgentSigner
	Version       string
	MaxAudioBytes int64

	engine   *gin.Engine
	upgrader websocket.Upgrader
}

// AgentSigner issues signed URLs for a hosted voice agent.
type AgentSigner interface {
	SignedURL(ctx context.Context) (string, error)
}

// Options configures routing concerns that are not part of the chat flow.
type Options struct {
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins  []string
	Version       string
	MaxAudioBytes int64
	// Agent is optional; without it the signed-url route reports the agent
	// as unavailable.
	Agent AgentSigner
}

// NewServer constructs a Server and registers every route.
func NewServer(chat *core.ChatService, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = 10 << 20
	}
	s := &Server{
		Chat:          chat,
		Agent:         opts.Agent,
		Version:       opts.Version,
		MaxAudioBytes: opts.MaxAudioBytes,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowOrigins),
	}

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.Use(cors.New(corsConfig(opts.AllowOrigins)))
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
	})

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/hotlines", s.handleHotlines)
		api.POST("/assess", s.handleAssess)

		chat := api.Group("/chat")
		{
			chat.POST("/text", s.handleTextChat)
			chat.POST("/voice", s.handleVoiceChat)
			chat.GET("/stream", s.handleStream)
			chat.GET("/agent/signed-url", s.handleAgentSignedURL)
			chat.GET("/:conversationId", s.handleGetConversation)
			chat.DELETE("/:conversationId", s.handleDeleteConversation)
		}
	}
	s.engine = r
	return s
}

// ServeHTTP dispatches to the gin engine.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
