package models

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one turn of a conversation as exchanged with the frontend.
type ChatMessage struct {
	Sender Sender   `json:"sender"`
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

// Chat is a titled conversation owned by a (user, sport) pair.
type Chat struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

const DefaultChatTitle = "New chat"
