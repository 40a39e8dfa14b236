package http

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mindmate/internal/core"
	"mindmate/internal/speech"
	"mindmate/internal/store"
	"mindmate/pkg"
)

var allowedAudioTypes = map[string]bool{
	"audio/webm": true,
	"audio/mp3":  true,
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/ogg":  true,
}

func (s *Server) handleHealth(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.Version,
	})
}

func (s *Server) handleHotlines(c *gin.Context) {
	ok(c, http.StatusOK, pkg.Hotlines)
}

// handleAssess screens a message without talking to the model.  An empty
// string is a valid input and assesses as NONE; a missing or non-string text
// field is rejected.
func (s *Server) handleAssess(c *gin.Context) {
	var body struct {
		Text *string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Text == nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Text is required")
		return
	}
	ok(c, http.StatusOK, s.Chat.Assess(*body.Text))
}

// handleTextChat runs a text-only turn.
func (s *Server) handleTextChat(c *gin.Context) {
	var req pkg.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Text is required")
		return
	}
	turn, err := s.Chat.ReplyText(c.Request.Context(), req)
	if err != nil {
		s.turnError(c, err)
		return
	}
	ok(c, http.StatusOK, turn.Response())
}

// handleVoiceChat accepts a multipart "audio" upload, transcribes it and runs
// a turn.  Synthesized audio is returned inline as a data URL.
func (s *Server) handleVoiceChat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxAudioBytes+1<<20)
	fh, err := c.FormFile("audio")
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Audio file is required")
		return
	}
	if fh.Size > s.MaxAudioBytes {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Audio file is too large")
		return
	}
	mime := fh.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !allowedAudioTypes[mime] {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid file type: "+mime)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Audio file is unreadable")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Audio file is unreadable")
		return
	}

	turn, err := s.Chat.ReplyVoice(c.Request.Context(), c.PostForm("conversationId"), audio, fh.Filename)
	if err != nil {
		s.turnError(c, err)
		return
	}
	resp := turn.Response()
	if len(turn.Audio) > 0 {
		resp.AudioURL = "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(turn.Audio)
	}
	ok(c, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.Chat.Conversation(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	if err := s.Chat.DeleteConversation(c.Request.Context(), c.Param("conversationId")); err != nil {
		s.storeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

// handleAgentSignedURL hands the browser a signed URL for the hosted voice
// agent.  Upstream failures keep the upstream status code.
func (s *Server) handleAgentSignedURL(c *gin.Context) {
	if s.Agent == nil {
		fail(c, http.StatusServiceUnavailable, "ELEVENLABS_ERROR", "Voice agent is not configured")
		return
	}
	signed, err := s.Agent.SignedURL(c.Request.Context())
	var upstream *speech.UpstreamError
	switch {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"signedUrl": signed})
	case errors.Is(err, speech.ErrNotConfigured):
		fail(c, http.StatusServiceUnavailable, "ELEVENLABS_ERROR", "Voice agent is not configured")
	case errors.As(err, &upstream):
		slog.Warn("http: signed URL rejected upstream", "status", upstream.Status, "request_id", requestIDFrom(c))
		fail(c, upstream.Status, "ELEVENLABS_ERROR", "Failed to get signed URL: "+upstream.Body)
	default:
		slog.Error("http: signed URL request failed", "error", err, "request_id", requestIDFrom(c))
		fail(c, http.StatusBadGateway, "ELEVENLABS_ERROR", "Failed to get signed URL")
	}
}

func (s *Server) turnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrTranscription):
		slog.Warn("http: transcription failed", "error", err, "request_id", requestIDFrom(c))
		fail(c, http.StatusBadGateway, "STT_ERROR", "Could not transcribe audio")
	case errors.Is(err, core.ErrEmptyMessage):
		fail(c, http.StatusUnprocessableEntity, "EMPTY_TRANSCRIPT", "No speech was recognized")
	default:
		slog.Error("http: chat turn failed", "error", err, "request_id", requestIDFrom(c))
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		return
	}
	slog.Error("http: store failure", "error", err, "request_id", requestIDFrom(c))
	fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}
