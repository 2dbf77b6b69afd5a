package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

type SignInResult struct {
	Identity models.Identity
	Session  models.Session
}

// StoreInput and ProductInput double as request bodies; handlers decode
// them directly. OwnerID and StoreID are assigned server-side from the
// session, never taken from the wire.
type StoreInput struct {
	OwnerID     string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

type ProductInput struct {
	StoreID     string  `json:"-"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
	Active      bool    `json:"is_active"`
}

type ProductQuery struct {
	Query    string
	Category string
	StoreID  string
	Limit    int
}

type UserRecord struct {
	Identity models.Identity
	Profile  models.Profile
	Role     models.RoleAssignment
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// OutboxOffset marks a position in the outbox. The event id breaks
// ties between events sharing a created_at, so paging never skips the
// second of two same-timestamp events across a batch boundary.
type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

func (o OutboxOffset) Advance(event OutboxEvent) OutboxOffset {
	return OutboxOffset{LastEventTime: event.CreatedAt, LastEventID: event.EventID}
}

type Notification struct {
	NotificationID string
	Channel        string
	Recipient      string
	Status         string
	Attempts       int
}

type Store interface {
	// Auth.
	SignUp(ctx context.Context, input SignUpInput) (models.Identity, error)
	SignIn(ctx context.Context, email, password string) (SignInResult, error)
	GetSession(ctx context.Context, token string) (models.Session, models.Identity, error)
	DeleteSession(ctx context.Context, token string) error

	// Role assignments.
	GetRoleAssignment(ctx context.Context, userID string) (models.RoleAssignment, error)
	UpsertRole(ctx context.Context, userID string, role models.Role) error

	// Profiles.
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error)

	// Storefronts.
	GetStore(ctx context.Context, storeID string) (models.StoreFront, error)
	GetStoreByOwner(ctx context.Context, ownerID string) (models.StoreFront, error)
	CreateStore(ctx context.Context, input StoreInput) (models.StoreFront, error)
	UpdateStore(ctx context.Context, storeID string, input StoreInput) (models.StoreFront, error)
	ListStores(ctx context.Context, verifiedOnly bool) ([]models.StoreFront, error)
	SetStoreVerified(ctx context.Context, storeID string, verified bool) (models.StoreFront, error)

	// Products.
	ListProducts(ctx context.Context, storeID string) ([]models.Product, error)
	SearchProducts(ctx context.Context, query ProductQuery) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, productID string, input ProductInput) (models.Product, error)
	DeleteProduct(ctx context.Context, productID string) error

	// Admin.
	ListUsers(ctx context.Context) ([]UserRecord, error)

	// Outbox, consumed by the realtime poller and the notify worker.
	ListOutboxEvents(ctx context.Context, offset OutboxOffset, limit int) ([]OutboxEvent, error)
}
