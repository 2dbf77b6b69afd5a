package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/notify"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"

	"github.com/jackc/pgx/v5"
)

// Notification worker persistence. A single offset row tracks how far
// the worker has read into the outbox.

func (s *Store) GetLastOffset(ctx context.Context) (store.OutboxOffset, error) {
	var offset store.OutboxOffset
	row := s.pool.QueryRow(ctx, `SELECT last_event_time, last_event_id FROM notification_offsets WHERE id = 1`)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.OutboxOffset{}, nil
		}
		return store.OutboxOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_offsets (id, last_event_time, last_event_id)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET last_event_time = EXCLUDED.last_event_time, last_event_id = EXCLUDED.last_event_id
	`, offset.LastEventTime, offset.LastEventID)
	return err
}

func (s *Store) StoreOwnerContact(ctx context.Context, storeID string) (notify.Contact, error) {
	var contact notify.Contact
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(p.full_name, ''), COALESCE(p.email, '')
		FROM stores st
		JOIN profiles p ON p.user_id = st.owner_id
		WHERE st.store_id = $1
	`, storeID)
	if err := row.Scan(&contact.Name, &contact.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.Contact{}, nil
		}
		return notify.Contact{}, err
	}
	return contact, nil
}

func (s *Store) UserContact(ctx context.Context, userID string) (notify.Contact, error) {
	var contact notify.Contact
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(full_name, ''), COALESCE(email, '')
		FROM profiles
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&contact.Name, &contact.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.Contact{}, nil
		}
		return notify.Contact{}, err
	}
	return contact, nil
}

func (s *Store) InsertNotification(ctx context.Context, notification store.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, channel, recipient, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, notification.NotificationID, notification.Channel, notification.Recipient, notification.Status, notification.Attempts, time.Now().UTC())
	return err
}

func (s *Store) MarkNotificationSent(ctx context.Context, notificationID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = 'sent', sent_at = NOW() WHERE notification_id = $1
	`, notificationID)
	return err
}

func (s *Store) MarkNotificationFailed(ctx context.Context, notificationID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = 'failed', last_error = $2 WHERE notification_id = $1
	`, notificationID, reason)
	return err
}
