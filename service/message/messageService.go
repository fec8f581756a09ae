package messagesvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentaread/model"
	messagerepo "rentaread/repository/message"
)

var (
	ErrForbidden = errors.New("not a participant in this conversation")
	ErrBadInput  = errors.New("bad input")
)

// Publisher pushes a sent message to live subscribers of its
// conversation. Delivery is best effort; the message is already
// persisted when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, conversationID string, m *model.Message)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64)
}

type Service interface {
	Send(ctx context.Context, senderID, receiverID int64, text string) (*model.Message, error)
	Conversation(ctx context.Context, userID int64, otherUserID int64) ([]model.Message, error)
	Conversations(ctx context.Context, userID int64) ([]model.Conversation, error)
}

type service struct {
	r   messagerepo.Repo
	pub Publisher
	n   Notifier
}

func New(r messagerepo.Repo, pub Publisher, n Notifier) Service {
	return &service{r: r, pub: pub, n: n}
}

// ConversationID is the sorted pair of participant ids, so both sides
// derive the same id without coordination.
func ConversationID(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// ParticipantOf reports whether userID is one of the two ids encoded
// in conversationID.
func ParticipantOf(conversationID string, userID int64) bool {
	me := fmt.Sprintf("%d", userID)
	parts := strings.SplitN(conversationID, "-", 2)
	return len(parts) == 2 && (parts[0] == me || parts[1] == me)
}

func (s *service) Send(ctx context.Context, senderID, receiverID int64, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrBadInput
	}
	if senderID == receiverID {
		return nil, ErrBadInput
	}

	m := &model.Message{
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
	}
	if err := s.r.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, m.ConversationID, m)
	s.n.Notify(ctx, receiverID, model.NotifyMessage, "You have a new message", m.ID)
	return m, nil
}

func (s *service) Conversation(ctx context.Context, userID, otherUserID int64) ([]model.Message, error) {
	id := ConversationID(userID, otherUserID)
	msgs, err := s.r.ListConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	// opening a conversation marks the viewer's side read
	if err := s.r.MarkRead(ctx, id, userID); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *service) Conversations(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return s.r.ListConversations(ctx, userID)
}
