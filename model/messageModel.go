// model/message.go
package model

import "time"

type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	ReceiverID     int64     `json:"receiver_id"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

type Conversation struct {
	ConversationID string  `json:"conversation_id"`
	LastMessage    Message `json:"last_message"`
	UnreadCount    int64   `json:"unread_count"`
	OtherUserID    int64   `json:"other_user_id"`
}
