package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindmate/internal/crisis"
	"mindmate/internal/llm"
	"mindmate/internal/speech"
	"mindmate/internal/store"
	"mindmate/pkg"
)

var (
	// ErrEmptyMessage is returned for blank text input.
	ErrEmptyMessage = errors.New("text is required")
	// ErrTranscription wraps speech-to-text failures; without a transcript
	// there is nothing to screen.
	ErrTranscription = errors.New("transcription failed")
)

// AlertPublisher receives an alert for every HIGH or CRITICAL message.
type AlertPublisher interface {
	Publish(ctx context.Context, alert pkg.CrisisAlert) error
}

// Deps bundles the collaborators of a ChatService.  STT, TTS and Alerts are
// optional.
type Deps struct {
	LLM      llm.Client
	Assessor *crisis.Assessor
	Store    store.Store
	STT      speech.Transcriber
	TTS      speech.Synthesizer
	Alerts   AlertPublisher
}

// ChatService orchestrates one conversational turn: screen the message,
// build the crisis-aware prompt, ask the model, persist the turn.  Turns for
// the same conversation are serialized; different conversations proceed in
// parallel.
type ChatService struct {
	deps  Deps
	locks *keyedMutex
}

// Turn is the outcome of one exchange.
type Turn struct {
	ConversationID string
	UserText       string
	Reply          string
	Assessment     crisis.Assessment
	Audio          []byte
}

// Response converts a turn into the API shape, attaching hotline records
// when the assessment calls for them.
func (t *Turn) Response() pkg.ChatResponse {
	resp := pkg.ChatResponse{
		ConversationID: t.ConversationID,
		UserTranscript: t.UserText,
		AIResponse:     t.Reply,
		CrisisLevel:    t.Assessment.Level.String(),
		ShowHotline:    t.Assessment.ShouldShowHotline,
	}
	if resp.ShowHotline {
		resp.Hotlines = pkg.Hotlines
	}
	return resp
}

// NewChatService constructs a ChatService.  A nil Assessor selects the
// reference lexicon; a nil Store selects a fresh in-memory store.
func NewChatService(deps Deps) *ChatService {
	if deps.Assessor == nil {
		deps.Assessor = crisis.NewDefaultAssessor()
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory(0)
	}
	return &ChatService{deps: deps, locks: newKeyedMutex()}
}

// Assess exposes the screening result without running a turn.
func (s *ChatService) Assess(text string) crisis.Assessment {
	return s.deps.Assessor.Assess(text)
}

// ReplyText runs a text turn.
func (s *ChatService) ReplyText(ctx context.Context, req pkg.ChatRequest) (*Turn, error) {
	return s.turn(ctx, req, nil)
}

// ReplyStream runs a text turn, delivering the assessment as soon as it is
// known and then every reply chunk as it arrives.
func (s *ChatService) ReplyStream(ctx context.Context, req pkg.ChatRequest, onAssessment func(id string, a crisis.Assessment), onChunk func(string)) (*Turn, error) {
	return s.turn(ctx, req, &streamHooks{onAssessment: onAssessment, onChunk: onChunk})
}

// ReplyVoice transcribes audio, runs the turn, and synthesizes the reply.
// A synthesis failure is logged and leaves Audio empty.
func (s *ChatService) ReplyVoice(ctx context.Context, conversationID string, audio []byte, filename string) (*Turn, error) {
	if s.deps.STT == nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscription, speech.ErrNotConfigured)
	}
	text, err := s.deps.STT.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	turn, err := s.turn(ctx, pkg.ChatRequest{ConversationID: conversationID, Text: text}, nil)
	if err != nil {
		return nil, err
	}
	if s.deps.TTS != nil {
		audioOut, err := s.deps.TTS.Synthesize(ctx, turn.Reply)
		if err != nil {
			slog.Warn("core.ReplyVoice: text-to-speech failed", "conversation", turn.ConversationID, "error", err)
		} else {
			turn.Audio = audioOut
		}
	}
	return turn, nil
}

// Conversation returns the stored history.
func (s *ChatService) Conversation(ctx context.Context, id string) (*pkg.Conversation, error) {
	return s.deps.Store.Get(ctx, id)
}

// DeleteConversation forgets a conversation.
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.deps.Store.Delete(ctx, id)
}

type streamHooks struct {
	onAssessment func(string, crisis.Assessment)
	onChunk      func(string)
}

func (s *ChatService) turn(ctx context.Context, req pkg.ChatRequest, hooks *streamHooks) (*Turn, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyMessage
	}
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	// Screening happens before anything that can fail or block.
	assessment := s.deps.Assessor.Assess(req.Text)
	if assessment.Level > crisis.None {
		slog.Info("core.turn: crisis screen", "conversation", id, "level", assessment.Level.String(), "triggers", assessment.Triggers)
	}
	if assessment.ShouldShowHotline {
		s.publishAlert(ctx, id, assessment)
	}
	if hooks != nil && hooks.onAssessment != nil {
		hooks.onAssessment(id, assessment)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var history []pkg.Message
	conv, err := s.deps.Store.Get(ctx, id)
	switch {
	case err == nil:
		history = conv.Messages
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	now := time.Now()
	userMsg := pkg.Message{Role: pkg.RoleUser, Content: req.Text, CrisisLevel: assessment.Level.String(), CreatedAt: now}
	prompt := BuildSystemPrompt(req.Grade, req.RecentMoods, assessment.Level)
	messages := toLLMMessages(prompt, append(history, userMsg))

	reply := s.generate(ctx, id, messages, hooks)

	botMsg := pkg.Message{Role: pkg.RoleAssistant, Content: reply, CreatedAt: time.Now()}
	if err := s.deps.Store.Append(ctx, id, userMsg, botMsg); err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	return &Turn{
		ConversationID: id,
		UserText:       req.Text,
		Reply:          reply,
		Assessment:     assessment,
	}, nil
}

// generate asks the model for a reply and degrades to a fixed placeholder on
// any failure.
func (s *ChatService) generate(ctx context.Context, id string, messages []llm.Message, hooks *streamHooks) string {
	if s.deps.LLM == nil {
		return s.placeholder(UnconfiguredReply, hooks)
	}
	var (
		reply string
		err   error
	)
	if hooks != nil && hooks.onChunk != nil {
		streamed := false
		reply, err = s.deps.LLM.ChatStream(ctx, messages, func(chunk string) {
			streamed = true
			hooks.onChunk(chunk)
		})
		if err != nil && streamed {
			slog.Error("core.generate: stream interrupted", "conversation", id, "error", err)
			return reply
		}
	} else {
		reply, err = s.deps.LLM.Chat(ctx, messages)
	}
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		slog.Warn("core.generate: LLM not configured, returning placeholder reply")
		return s.placeholder(UnconfiguredReply, hooks)
	case err != nil:
		slog.Error("core.generate: LLM call failed", "conversation", id, "error", err)
		return s.placeholder(FallbackReply, hooks)
	case strings.TrimSpace(reply) == "":
		return s.placeholder(FallbackReply, hooks)
	}
	return reply
}

func (s *ChatService) placeholder(text string, hooks *streamHooks) string {
	if hooks != nil && hooks.onChunk != nil {
		hooks.onChunk(text)
	}
	return text
}

func (s *ChatService) publishAlert(ctx context.Context, id string, a crisis.Assessment) {
	if s.deps.Alerts == nil {
		return
	}
	alert := pkg.CrisisAlert{
		ConversationID: id,
		Level:          a.Level.String(),
		Triggers:       a.Triggers,
		At:             time.Now().UTC(),
	}
	if err := s.deps.Alerts.Publish(ctx, alert); err != nil {
		slog.Error("core.publishAlert: failed to publish crisis alert", "conversation", id, "level", alert.Level, "error", err)
	}
}

func toLLMMessages(systemPrompt string, history []pkg.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
