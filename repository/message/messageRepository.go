package messagerepo

import (
	"context"

	"rentaread/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo interface {
	Insert(ctx context.Context, m *model.Message) error
	ListConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID string, receiverID int64) error
	ListConversations(ctx context.Context, userID int64) ([]model.Conversation, error)
}

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

func (r *repo) Insert(ctx context.Context, m *model.Message) error {
	const q = `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, text)
		VALUES ($1,$2,$3,$4)
		RETURNING id, read, created_at`
	return r.pool.QueryRow(ctx, q, m.ConversationID, m.SenderID, m.ReceiverID, m.Text).
		Scan(&m.ID, &m.Read, &m.CreatedAt)
}

func (r *repo) ListConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	const q = `
		SELECT id, conversation_id, sender_id, receiver_id, text, read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repo) MarkRead(ctx context.Context, conversationID string, receiverID int64) error {
	const q = `
		UPDATE messages SET read = TRUE
		WHERE conversation_id = $1 AND receiver_id = $2 AND read = FALSE`
	_, err := r.pool.Exec(ctx, q, conversationID, receiverID)
	return err
}

func (r *repo) ListConversations(ctx context.Context, userID int64) ([]model.Conversation, error) {
	const q = `
		SELECT DISTINCT ON (m.conversation_id)
			m.conversation_id,
			m.id, m.sender_id, m.receiver_id, m.text, m.read, m.created_at,
			(SELECT COUNT(*) FROM messages u
				WHERE u.conversation_id = m.conversation_id
				AND u.receiver_id = $1 AND u.read = FALSE) AS unread,
			CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS other_user
		FROM messages m
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.conversation_id, m.created_at DESC, m.id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(
			&c.ConversationID,
			&c.LastMessage.ID, &c.LastMessage.SenderID, &c.LastMessage.ReceiverID,
			&c.LastMessage.Text, &c.LastMessage.Read, &c.LastMessage.CreatedAt,
			&c.UnreadCount, &c.OtherUserID,
		); err != nil {
			return nil, err
		}
		c.LastMessage.ConversationID = c.ConversationID
		out = append(out, c)
	}
	return out, rows.Err()
}
