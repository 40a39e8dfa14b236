package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mindmate/internal/crisis"
	"mindmate/internal/llm"
	"mindmate/internal/store"
	"mindmate/pkg"
)

// fakeLLM records every call and replies with a fixed text or error.
type fakeLLM struct {
	mu       sync.Mutex
	calls    [][]llm.Message
	reply    string
	err      error
	chunks   []string
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (f *fakeLLM) record(messages []llm.Message) {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, append([]llm.Message(nil), messages...))
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt32(&f.inFlight, -1)
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.record(messages)
	return f.reply, f.err
}

func (f *fakeLLM) ChatStream(ctx context.Context, messages []llm.Message, onChunk func(string)) (string, error) {
	f.record(messages)
	if f.err != nil {
		return "", f.err
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeLLM) lastCall() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []pkg.CrisisAlert
	err    error
}

func (f *fakeAlerts) Publish(ctx context.Context, a pkg.CrisisAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

type fakeSTT struct {
	text string
	err  error
}

func (f fakeSTT) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return f.text, f.err
}

type fakeTTS struct {
	audio []byte
	err   error
}

func (f fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

func TestReplyTextCriticalAugmentsPrompt(t *testing.T) {
	model := &fakeLLM{reply: "Mình ở đây với bạn."}
	alerts := &fakeAlerts{}
	svc := NewChatService(Deps{LLM: model, Alerts: alerts})

	turn, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "Mình không muốn sống nữa"})
	if err != nil {
		t.Fatalf("ReplyText: %v", err)
	}
	if turn.ConversationID == "" {
		t.Error("expected a generated conversation id")
	}
	if turn.Assessment.Level != crisis.Critical {
		t.Errorf("expected CRITICAL, got %s", turn.Assessment.Level)
	}
	sys := model.lastCall()[0]
	if sys.Role != "system" || !strings.Contains(sys.Content, "KHỦNG HOẢNG NGHIÊM TRỌNG") {
		t.Error("system prompt is missing the critical addition")
	}
	resp := turn.Response()
	if resp.CrisisLevel != "CRITICAL" || !resp.ShowHotline || len(resp.Hotlines) == 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Hotlines[0].Number != crisis.MentalHealthHotline {
		t.Errorf("expected mental health hotline first, got %+v", resp.Hotlines[0])
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Level != "CRITICAL" || alerts.alerts[0].ConversationID != turn.ConversationID {
		t.Errorf("unexpected alerts %+v", alerts.alerts)
	}
}

func TestReplyTextNoneLeavesPromptPlain(t *testing.T) {
	model := &fakeLLM{reply: "Hay quá!"}
	alerts := &fakeAlerts{}
	svc := NewChatService(Deps{LLM: model, Alerts: alerts})

	turn, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "Hôm nay mình đi học về và làm bài tập"})
	if err != nil {
		t.Fatal(err)
	}
	if turn.Assessment.Level != crisis.None {
		t.Errorf("expected NONE, got %s", turn.Assessment.Level)
	}
	if got := model.lastCall()[0].Content; got != SystemPrompt {
		t.Error("expected the bare system prompt for a NONE message")
	}
	resp := turn.Response()
	if resp.ShowHotline || resp.Hotlines != nil {
		t.Errorf("unexpected hotline in %+v", resp)
	}
	if len(alerts.alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts.alerts)
	}
}

func TestReplyTextUnconfiguredLLMStillScreens(t *testing.T) {
	for name, client := range map[string]llm.Client{
		"nil client":          nil,
		"unconfigured client": &fakeLLM{err: llm.ErrNotConfigured},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewChatService(Deps{LLM: client})
			turn, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "Mọi người sẽ tốt hơn nếu không có mình"})
			if err != nil {
				t.Fatal(err)
			}
			if turn.Reply != UnconfiguredReply {
				t.Errorf("expected placeholder reply, got %q", turn.Reply)
			}
			if turn.Assessment.Level != crisis.High || !turn.Assessment.ShouldShowHotline {
				t.Errorf("screening lost: %+v", turn.Assessment)
			}
		})
	}
}

func TestReplyTextLLMFailureFallsBack(t *testing.T) {
	alerts := &fakeAlerts{}
	svc := NewChatService(Deps{LLM: &fakeLLM{err: errors.New("timeout")}, Alerts: alerts})
	turn, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "Mình muốn biến mất"})
	if err != nil {
		t.Fatal(err)
	}
	if turn.Reply != FallbackReply {
		t.Errorf("expected fallback reply, got %q", turn.Reply)
	}
	if len(alerts.alerts) != 1 {
		t.Errorf("alert must be published even when the model fails, got %d", len(alerts.alerts))
	}
}

func TestReplyTextAlertFailureDoesNotBlock(t *testing.T) {
	svc := NewChatService(Deps{LLM: &fakeLLM{reply: "ok"}, Alerts: &fakeAlerts{err: errors.New("db down")}})
	turn, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "Mình muốn chết"})
	if err != nil {
		t.Fatal(err)
	}
	if turn.Reply != "ok" || turn.Assessment.Level != crisis.Critical {
		t.Errorf("unexpected turn %+v", turn)
	}
}

func TestReplyTextEmpty(t *testing.T) {
	svc := NewChatService(Deps{LLM: &fakeLLM{reply: "x"}})
	if _, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestReplyTextReplaysHistory(t *testing.T) {
	model := &fakeLLM{reply: "ừ"}
	st := store.NewMemory(0)
	svc := NewChatService(Deps{LLM: model, Store: st})
	ctx := context.Background()

	first, err := svc.ReplyText(ctx, pkg.ChatRequest{Text: "chào"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplyText(ctx, pkg.ChatRequest{ConversationID: first.ConversationID, Text: "Hôm nay mình rất buồn"}); err != nil {
		t.Fatal(err)
	}

	call := model.lastCall()
	if len(call) != 4 {
		t.Fatalf("expected system + 3 history messages, got %d", len(call))
	}
	if call[1].Content != "chào" || call[2].Role != "assistant" || call[3].Content != "Hôm nay mình rất buồn" {
		t.Errorf("unexpected history %+v", call)
	}

	conv, err := svc.Conversation(ctx, first.ConversationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(conv.Messages))
	}
	if conv.Messages[2].CrisisLevel != "LOW" {
		t.Errorf("expected user message tagged LOW, got %q", conv.Messages[2].CrisisLevel)
	}
}

func TestReplyTextContextualPrompt(t *testing.T) {
	model := &fakeLLM{reply: "ok"}
	svc := NewChatService(Deps{LLM: model})
	_, err := svc.ReplyText(context.Background(), pkg.ChatRequest{Text: "chào", Grade: "GRADE_12", RecentMoods: []string{"NUMB"}})
	if err != nil {
		t.Fatal(err)
	}
	sys := model.lastCall()[0].Content
	if !strings.Contains(sys, "lớp 12") || !strings.Contains(sys, "cô đơn") {
		t.Error("expected grade and mood guidance in the system prompt")
	}
}

func TestReplyTextSerializesPerConversation(t *testing.T) {
	model := &fakeLLM{reply: "ok", delay: 5 * time.Millisecond}
	st := store.NewMemory(100)
	svc := NewChatService(Deps{LLM: model, Store: st})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ReplyText(ctx, pkg.ChatRequest{ConversationID: "same", Text: "chào"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&model.maxSeen); got != 1 {
		t.Errorf("expected turns on one conversation to run one at a time, saw %d concurrent", got)
	}
	conv, err := st.Get(ctx, "same")
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(conv.Messages))
	}
	for i, m := range conv.Messages {
		want := pkg.RoleUser
		if i%2 == 1 {
			want = pkg.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("message %d has role %s, turns interleaved", i, m.Role)
		}
	}
	if n := svc.locks.size(); n != 0 {
		t.Errorf("expected lock table to drain, %d left", n)
	}
}

func TestReplyStream(t *testing.T) {
	model := &fakeLLM{chunks: []string{"Mình ", "nghe ", "đây."}}
	svc := NewChatService(Deps{LLM: model})

	var events []string
	turn, err := svc.ReplyStream(context.Background(), pkg.ChatRequest{Text: "Mình cảm thấy vô vọng"},
		func(id string, a crisis.Assessment) { events = append(events, "assessment:"+a.Level.String()) },
		func(chunk string) { events = append(events, chunk) },
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"assessment:MEDIUM", "Mình ", "nghe ", "đây."}
	if strings.Join(events, "|") != strings.Join(want, "|") {
		t.Errorf("events = %v, want %v", events, want)
	}
	if turn.Reply != "Mình nghe đây." {
		t.Errorf("unexpected reply %q", turn.Reply)
	}
}

func TestReplyStreamFallbackChunk(t *testing.T) {
	svc := NewChatService(Deps{LLM: &fakeLLM{err: errors.New("boom")}})
	var chunks []string
	turn, err := svc.ReplyStream(context.Background(), pkg.ChatRequest{Text: "chào"}, nil, func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0] != FallbackReply || turn.Reply != FallbackReply {
		t.Errorf("expected a single fallback chunk, got %v", chunks)
	}
}

func TestReplyVoice(t *testing.T) {
	svc := NewChatService(Deps{
		LLM: &fakeLLM{reply: "Mình ở đây."},
		STT: fakeSTT{text: "Mình đã chuẩn bị để kết thúc tất cả"},
		TTS: fakeTTS{audio: []byte("mp3")},
	})
	turn, err := svc.ReplyVoice(context.Background(), "", []byte("webm"), "a.webm")
	if err != nil {
		t.Fatal(err)
	}
	if turn.UserText != "Mình đã chuẩn bị để kết thúc tất cả" {
		t.Errorf("unexpected transcript %q", turn.UserText)
	}
	if !turn.Assessment.ShouldShowHotline {
		t.Error("expected hotline for transcribed crisis message")
	}
	if string(turn.Audio) != "mp3" {
		t.Errorf("unexpected audio %q", turn.Audio)
	}
}

func TestReplyVoiceTTSFailureKeepsTurn(t *testing.T) {
	svc := NewChatService(Deps{
		LLM: &fakeLLM{reply: "ok"},
		STT: fakeSTT{text: "chào"},
		TTS: fakeTTS{err: errors.New("quota")},
	})
	turn, err := svc.ReplyVoice(context.Background(), "c", []byte("x"), "")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Audio != nil || turn.Reply != "ok" {
		t.Errorf("unexpected turn %+v", turn)
	}
}

func TestReplyVoiceTranscriptionErrors(t *testing.T) {
	for name, stt := range map[string]fakeSTT{
		"failure":    {err: errors.New("bad audio")},
		"empty text": {text: ""},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewChatService(Deps{LLM: &fakeLLM{reply: "ok"}, STT: stt})
			_, err := svc.ReplyVoice(context.Background(), "", []byte("x"), "")
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}

	svc := NewChatService(Deps{LLM: &fakeLLM{reply: "ok"}})
	if _, err := svc.ReplyVoice(context.Background(), "", []byte("x"), ""); !errors.Is(err, ErrTranscription) {
		t.Errorf("expected ErrTranscription without STT, got %v", err)
	}
}

func TestDeleteConversation(t *testing.T) {
	svc := NewChatService(Deps{LLM: &fakeLLM{reply: "ok"}})
	ctx := context.Background()
	turn, _ := svc.ReplyText(ctx, pkg.ChatRequest{Text: "chào"})
	if err := svc.DeleteConversation(ctx, turn.ConversationID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Conversation(ctx, turn.ConversationID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
