package notify

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"

	"github.com/google/uuid"
)

// Store is the slice of persistence the worker needs.
type Store interface {
	GetLastOffset(ctx context.Context) (store.OutboxOffset, error)
	UpdateOffset(ctx context.Context, offset store.OutboxOffset) error
	ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error)
	StoreOwnerContact(ctx context.Context, storeID string) (Contact, error)
	UserContact(ctx context.Context, userID string) (Contact, error)
	InsertNotification(ctx context.Context, notification store.Notification) error
	MarkNotificationSent(ctx context.Context, notificationID string) error
	MarkNotificationFailed(ctx context.Context, notificationID, reason string) error
}

type Contact struct {
	Name  string
	Email string
}

type Worker struct {
	store    Store
	provider Provider
	batch    int
}

type Config struct {
	BatchSize int
	Provider  Provider
}

type payloadData map[string]interface{}

func New(store Store, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	provider := cfg.Provider
	if provider == nil {
		provider = LogProvider{}
	}
	return &Worker{store: store, provider: provider, batch: batch}
}

// Start polls until ctx is cancelled.
func Start(ctx context.Context, interval time.Duration, w *Worker) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("notify run error: %v", err)
			}
		}
	}
}

func (w *Worker) Run(ctx context.Context) error {
	offset, err := w.store.GetLastOffset(ctx)
	if err != nil {
		return err
	}

	events, err := w.store.ListOutboxEvents(ctx, offset, w.batch)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			log.Printf("notify process error: %v", err)
		}
		offset = offset.Advance(event)
	}

	if len(events) > 0 {
		if err := w.store.UpdateOffset(ctx, offset); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, event store.OutboxEvent) error {
	payload := payloadData{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	template := templateForEvent(event.Type)
	if template == "" {
		// Not every outbox event notifies anyone.
		return nil
	}

	contact, err := w.recipient(ctx, event.Type, payload)
	if err != nil {
		return err
	}
	if contact.Email == "" {
		return nil
	}
	payload["recipient_name"] = contact.Name

	message := renderTemplate(template, payload)
	notification := store.Notification{
		NotificationID: uuid.NewString(),
		Channel:        "email",
		Recipient:      contact.Email,
		Status:         "pending",
		Attempts:       1,
	}
	if err := w.store.InsertNotification(ctx, notification); err != nil {
		return err
	}

	if err := w.provider.Send(contact.Email, subjectForEvent(event.Type), message); err != nil {
		return w.store.MarkNotificationFailed(ctx, notification.NotificationID, err.Error())
	}
	return w.store.MarkNotificationSent(ctx, notification.NotificationID)
}

func (w *Worker) recipient(ctx context.Context, eventType string, payload payloadData) (Contact, error) {
	switch eventType {
	case "store.verified", "store.rejected":
		return w.store.StoreOwnerContact(ctx, str(payload["store_id"]))
	case "role.updated":
		return w.store.UserContact(ctx, str(payload["user_id"]))
	}
	return Contact{}, nil
}

func templateForEvent(eventType string) string {
	switch eventType {
	case "store.verified":
		return "Halo {recipient_name}, toko Anda telah diverifikasi dan kini tampil di Pasar UMKM Banjarbaru."
	case "store.rejected":
		return "Halo {recipient_name}, verifikasi toko Anda ditolak. Silakan periksa kembali data toko."
	case "role.updated":
		return "Halo {recipient_name}, peran akun Anda kini: {role}."
	}
	return ""
}

func subjectForEvent(eventType string) string {
	switch eventType {
	case "store.verified":
		return "Toko terverifikasi"
	case "store.rejected":
		return "Verifikasi toko ditolak"
	case "role.updated":
		return "Peran akun diperbarui"
	}
	return "Pasar UMKM"
}

func renderTemplate(body string, payload payloadData) string {
	result := body
	for key, value := range payload {
		result = strings.ReplaceAll(result, "{"+key+"}", str(value))
	}
	return result
}

func str(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	data, _ := json.Marshal(value)
	return strings.Trim(string(data), `"`)
}
