// Package model defines the domain records shared across the sync core.
package model

import "time"

// AISystemID is the author id the backend uses for AI-generated messages.
const AISystemID = "ai-system"

// MessageKind classifies message content.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

// Attachment describes a file carried by an image/file message.
type Attachment struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Message is a single chat message. Immutable once created; the id is
// assigned by the server and is the dedup key within a channel.
type Message struct {
	ID         string      `json:"id"`
	ChannelID  string      `json:"channelId"`
	AuthorID   string      `json:"authorId"`
	AuthorName string      `json:"authorName,omitempty"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ChannelSnapshot is a read-only copy of one channel's live state.
type ChannelSnapshot struct {
	ChannelID     string
	Messages      []Message
	TypingUserIDs []string
	AIBusy        bool
	LastSyncAt    time.Time // zero means no sync has happened yet
}

// ConnStatus is the transport connection status.
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
)

// ConnectionState mirrors the transport lifecycle for the UI.
type ConnectionState struct {
	Status    ConnStatus
	LastError string
}

// ContextSignal is an AI-classified excerpt of conversation returned by the
// context-query endpoint.
type ContextSignal struct {
	Content      string `json:"content"`
	AuthorName   string `json:"authorName"`
	ClassifiedAt string `json:"classifiedAt"`
}

// HistoryEntry is one line of conversation history sent to the AI-ask
// endpoint.
type HistoryEntry struct {
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// AIAskRequest is the AI-ask endpoint payload.
type AIAskRequest struct {
	Category string         `json:"category"`
	History  []HistoryEntry `json:"history"`
	Query    string         `json:"query,omitempty"`
}

// AIAskItem is a reference quote in an AI-ask response.
type AIAskItem struct {
	Text string `json:"text"`
	User string `json:"user"`
}

// AIAskResponse is the structured AI-ask result. Both fields are optional;
// a response with neither still counts as success.
type AIAskResponse struct {
	Insight string      `json:"insight,omitempty"`
	Items   []AIAskItem `json:"items,omitempty"`
}

// AuthSession is the result of a successful login.
type AuthSession struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}
