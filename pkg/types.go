package pkg

import "time"

// MessageRole describes who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of a conversation.  CrisisLevel is only set on user
// messages and records the screening result at the time it was sent.
type Message struct {
	Role        MessageRole `json:"role"`
	Content     string      `json:"content"`
	CrisisLevel string      `json:"crisisLevel,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Conversation is the history the chat service replays to the model.
type Conversation struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// Hotline is a crisis-support contact shown whenever a reply carries the
// hotline flag.
type Hotline struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Hours  string `json:"hours"`
	Cost   string `json:"cost"`
}

// Hotlines is the static contact list rendered by clients.  The mental health
// line comes first.
var Hotlines = []Hotline{
	{Name: "Đường dây nóng Sức khỏe Tâm thần", Number: "1800-599-920", Hours: "24/7", Cost: "Miễn phí"},
	{Name: "Tổng đài Bảo vệ Trẻ em", Number: "111", Hours: "24/7", Cost: "Miễn phí"},
	{Name: "Cấp cứu", Number: "115", Hours: "24/7", Cost: "Miễn phí"},
}

// ChatRequest is the body of POST /api/v1/chat/text and the frame a websocket
// client sends.
type ChatRequest struct {
	ConversationID string   `json:"conversationId,omitempty"`
	Text           string   `json:"text"`
	Grade          string   `json:"grade,omitempty"`
	RecentMoods    []string `json:"recentMoods,omitempty"`
}

// ChatResponse is returned by the chat endpoints.  CrisisLevel is one of
// NONE, LOW, MEDIUM, HIGH or CRITICAL; Hotlines is populated iff ShowHotline.
type ChatResponse struct {
	ConversationID string    `json:"conversationId"`
	UserTranscript string    `json:"userTranscript"`
	AIResponse     string    `json:"aiResponse"`
	CrisisLevel    string    `json:"crisisLevel"`
	ShowHotline    bool      `json:"showHotline"`
	Hotlines       []Hotline `json:"hotlines,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
}

// CrisisAlert is published when a message screens HIGH or CRITICAL.
type CrisisAlert struct {
	ConversationID string    `json:"conversationId"`
	Level          string    `json:"level"`
	Triggers       []string  `json:"triggers"`
	At             time.Time `json:"at"`
}

// APIError is the error half of the response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta is attached to every API response.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// Envelope wraps every JSON API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}
