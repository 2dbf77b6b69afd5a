package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"
)

type fakeNotifyStore struct {
	offset  store.OutboxOffset
	events  []store.OutboxEvent
	sent    []store.Notification
	failed  []string
	contact Contact
}

func (f *fakeNotifyStore) GetLastOffset(ctx context.Context) (store.OutboxOffset, error) {
	return f.offset, nil
}

func (f *fakeNotifyStore) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error {
	f.offset = offset
	return nil
}

func (f *fakeNotifyStore) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	var result []store.OutboxEvent
	for _, event := range f.events {
		if event.CreatedAt.Before(offset.LastEventTime) {
			continue
		}
		if event.CreatedAt.Equal(offset.LastEventTime) && event.EventID <= offset.LastEventID {
			continue
		}
		result = append(result, event)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeNotifyStore) StoreOwnerContact(ctx context.Context, storeID string) (Contact, error) {
	return f.contact, nil
}

func (f *fakeNotifyStore) UserContact(ctx context.Context, userID string) (Contact, error) {
	return f.contact, nil
}

func (f *fakeNotifyStore) InsertNotification(ctx context.Context, notification store.Notification) error {
	f.sent = append(f.sent, notification)
	return nil
}

func (f *fakeNotifyStore) MarkNotificationSent(ctx context.Context, notificationID string) error {
	return nil
}

func (f *fakeNotifyStore) MarkNotificationFailed(ctx context.Context, notificationID, reason string) error {
	f.failed = append(f.failed, notificationID)
	return nil
}

type captureProvider struct {
	bodies []string
	err    error
}

func (p *captureProvider) Send(recipient, subject, body string) error {
	p.bodies = append(p.bodies, body)
	return p.err
}

func event(eventType string, payload map[string]string, at time.Time) store.OutboxEvent {
	data, _ := json.Marshal(payload)
	return store.OutboxEvent{EventID: "e-" + eventType, Type: eventType, Payload: data, CreatedAt: at}
}

func TestRenderTemplate(t *testing.T) {
	payload := payloadData{"recipient_name": "Siti", "role": "seller"}
	got := renderTemplate("Halo {recipient_name}, peran akun Anda kini: {role}.", payload)
	if got != "Halo Siti, peran akun Anda kini: seller." {
		t.Fatalf("unexpected render: %s", got)
	}
}

func TestWorkerSendsVerificationEmail(t *testing.T) {
	now := time.Now().UTC()
	st := &fakeNotifyStore{
		events:  []store.OutboxEvent{event("store.verified", map[string]string{"store_id": "s1"}, now)},
		contact: Contact{Name: "Siti", Email: "siti@example.com"},
	}
	provider := &captureProvider{}
	w := New(st, Config{Provider: provider})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(provider.bodies) != 1 {
		t.Fatalf("expected one delivery, got %d", len(provider.bodies))
	}
	if len(st.sent) != 1 || st.sent[0].Recipient != "siti@example.com" {
		t.Fatalf("unexpected notification rows: %+v", st.sent)
	}
	if !st.offset.LastEventTime.Equal(now) || st.offset.LastEventID != "e-store.verified" {
		t.Fatalf("expected offset to advance past the event, got %+v", st.offset)
	}
}

func TestWorkerKeepsSameTimestampEventsAcrossBatches(t *testing.T) {
	now := time.Now().UTC()
	first := event("store.verified", map[string]string{"store_id": "s1"}, now)
	first.EventID = "e-1"
	second := event("store.rejected", map[string]string{"store_id": "s2"}, now)
	second.EventID = "e-2"
	st := &fakeNotifyStore{
		events:  []store.OutboxEvent{first, second},
		contact: Contact{Name: "Siti", Email: "siti@example.com"},
	}
	provider := &captureProvider{}
	w := New(st, Config{Provider: provider, BatchSize: 1})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(provider.bodies) != 2 {
		t.Fatalf("expected both same-timestamp events delivered, got %d", len(provider.bodies))
	}
	if st.offset.LastEventID != "e-2" {
		t.Fatalf("expected offset at the second event, got %+v", st.offset)
	}
}

func TestWorkerSkipsUnknownEvents(t *testing.T) {
	st := &fakeNotifyStore{
		events:  []store.OutboxEvent{event("product.created", map[string]string{"product_id": "p1"}, time.Now().UTC())},
		contact: Contact{Email: "siti@example.com"},
	}
	provider := &captureProvider{}
	w := New(st, Config{Provider: provider})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(provider.bodies) != 0 || len(st.sent) != 0 {
		t.Fatal("expected product events to be skipped")
	}
}

func TestWorkerRecordsProviderFailure(t *testing.T) {
	st := &fakeNotifyStore{
		events:  []store.OutboxEvent{event("store.rejected", map[string]string{"store_id": "s1"}, time.Now().UTC())},
		contact: Contact{Name: "Siti", Email: "siti@example.com"},
	}
	provider := &captureProvider{err: errors.New("smtp down")}
	w := New(st, Config{Provider: provider})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(st.failed) != 1 {
		t.Fatalf("expected one failed notification, got %d", len(st.failed))
	}
}
