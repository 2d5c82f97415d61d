package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const notificationColumns = `
	id, title, message, notification_type, priority,
	recipient_id, sender_id, is_read, read_at, action_url, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Priority,
		&n.RecipientID,
		&n.SenderID,
		&n.IsRead,
		&n.ReadAt,
		&n.ActionURL,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *PgStore) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (
			id, title, message, notification_type, priority,
			recipient_id, sender_id, action_url, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+notificationColumns+`
	`, n.ID, n.Title, n.Message, n.Type, n.Priority, n.RecipientID, n.SenderID, n.ActionURL)

	saved, err := scanNotification(row)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	*n = *saved
	return nil
}

func (s *PgStore) List(ctx context.Context, recipientID uuid.UUID, f ListFilter) ([]Notification, error) {
	var (
		where = []string{"recipient_id = $1"}
		args  = []any{recipientID}
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	switch f.Status {
	case "unread":
		where = append(where, "is_read = false")
	case "read":
		where = append(where, "is_read = true")
	}
	if f.Type != "" {
		where = append(where, "notification_type = "+arg(f.Type))
	}
	if f.Priority != "" {
		where = append(where, "priority = "+arg(f.Priority))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(title ILIKE "+p+" OR message ILIKE "+p+")")
	}

	var order string
	switch f.Sort {
	case SortDateAsc:
		order = "created_at ASC"
	case SortPriority:
		order = `CASE priority
			WHEN 'urgent' THEN 0
			WHEN 'high' THEN 1
			WHEN 'normal' THEN 2
			WHEN 'low' THEN 3
		END, created_at DESC`
	case SortType:
		order = "notification_type, created_at DESC"
	case SortUnreadFirst:
		order = "is_read, created_at DESC"
	default:
		order = "created_at DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order + `
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	return result, rows.Err()
}

func (s *PgStore) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM notifications
		WHERE recipient_id = $1 AND is_read = false
	`, recipientID).Scan(&count)
	return count, err
}

func (s *PgStore) HasUnread(ctx context.Context, recipientID uuid.UUID, t Type, titlePrefix string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE recipient_id = $1
			  AND notification_type = $2
			  AND is_read = false
			  AND title LIKE $3 || '%'
		)
	`, recipientID, t, titlePrefix).Scan(&exists)
	return exists, err
}

func (s *PgStore) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true,
		    read_at = now()
		WHERE id = $1
		  AND recipient_id = $2
		  AND is_read = false
	`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish already-read (idempotent success) from missing.
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1 AND recipient_id = $2)
		`, id, recipientID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *PgStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true,
		    read_at = now()
		WHERE recipient_id = $1
		  AND is_read = false
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
