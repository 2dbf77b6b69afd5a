package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 7 * 24 * time.Hour

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SignUp(ctx context.Context, input store.SignUpInput) (models.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Identity{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Identity{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	userID := uuid.NewString()
	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO users (user_id, email, password_hash, full_name, active, created_at)
		VALUES ($1, lower($2), $3, $4, TRUE, $5)
	`, userID, input.Email, string(hash), input.FullName, now)
	if err != nil {
		if isUniqueViolation(err) {
			err = store.ErrEmailTaken
		}
		return models.Identity{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, email, updated_at)
		VALUES ($1, $2, lower($3), $4)
	`, userID, input.FullName, input.Email, now)
	if err != nil {
		return models.Identity{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Identity{}, err
	}

	return models.Identity{
		UserID:   userID,
		Email:    strings.ToLower(input.Email),
		FullName: input.FullName,
		Created:  now,
	}, nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (store.SignInResult, error) {
	var identity models.Identity
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, email, full_name, password_hash, created_at
		FROM users
		WHERE email = lower($1) AND active = TRUE
	`, email)
	if err := row.Scan(&identity.UserID, &identity.Email, &identity.FullName, &passwordHash, &identity.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SignInResult{}, store.ErrInvalidCredentials
		}
		return store.SignInResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return store.SignInResult{}, store.ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, identity.UserID)
	if err != nil {
		return store.SignInResult{}, err
	}
	return store.SignInResult{Identity: identity, Session: session}, nil
}

func (s *Store) createSession(ctx context.Context, userID string) (models.Session, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	expiresAt := now.Add(sessionTTL)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, token, userID, now, expiresAt)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{Token: token, UserID: userID, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (models.Session, models.Identity, error) {
	var session models.Session
	var identity models.Identity
	row := s.pool.QueryRow(ctx, `
		SELECT s.token, s.user_id, s.issued_at, s.expires_at,
		       u.user_id, u.email, u.full_name, u.created_at
		FROM sessions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW() AND u.active = TRUE
	`, token)
	if err := row.Scan(&session.Token, &session.UserID, &session.IssuedAt, &session.ExpiresAt,
		&identity.UserID, &identity.Email, &identity.FullName, &identity.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.Identity{}, store.ErrSessionNotFound
		}
		return models.Session{}, models.Identity{}, err
	}
	return session, identity, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *Store) GetRoleAssignment(ctx context.Context, userID string) (models.RoleAssignment, error) {
	var role string
	row := s.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RoleAssignment{}, nil
		}
		return models.RoleAssignment{}, err
	}
	return models.RoleAssignment{Role: models.Role(role), Found: true}, nil
}

func (s *Store) UpsertRole(ctx context.Context, userID string, role models.Role) error {
	if !models.ValidRole(role) {
		return store.ErrInvalidRole
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, string(role))
	if err != nil {
		return err
	}
	if err = s.insertOutboxEvent(ctx, tx, "role.updated", map[string]interface{}{
		"user_id": userID,
		"role":    string(role),
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, full_name, email, COALESCE(phone, ''), COALESCE(address, ''), updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&profile.UserID, &profile.FullName, &profile.Email, &profile.Phone, &profile.Address, &profile.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, store.ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return profile, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	profile.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, full_name, email, phone, address, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = EXCLUDED.updated_at
	`, profile.UserID, profile.FullName, profile.Email, profile.Phone, profile.Address, profile.UpdatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	return s.GetProfile(ctx, profile.UserID)
}

func (s *Store) GetStore(ctx context.Context, storeID string) (models.StoreFront, error) {
	return s.scanStore(s.pool.QueryRow(ctx, `
		SELECT store_id, owner_id, name, COALESCE(description, ''), COALESCE(address, ''), COALESCE(phone, ''), is_verified, created_at
		FROM stores
		WHERE store_id = $1
	`, storeID))
}

func (s *Store) GetStoreByOwner(ctx context.Context, ownerID string) (models.StoreFront, error) {
	return s.scanStore(s.pool.QueryRow(ctx, `
		SELECT store_id, owner_id, name, COALESCE(description, ''), COALESCE(address, ''), COALESCE(phone, ''), is_verified, created_at
		FROM stores
		WHERE owner_id = $1
	`, ownerID))
}

func (s *Store) scanStore(row pgx.Row) (models.StoreFront, error) {
	var sf models.StoreFront
	if err := row.Scan(&sf.StoreID, &sf.OwnerID, &sf.Name, &sf.Description, &sf.Address, &sf.Phone, &sf.Verified, &sf.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StoreFront{}, store.ErrStoreNotFound
		}
		return models.StoreFront{}, err
	}
	return sf, nil
}

func (s *Store) CreateStore(ctx context.Context, input store.StoreInput) (models.StoreFront, error) {
	storeID := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stores (store_id, owner_id, name, description, address, phone, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, storeID, input.OwnerID, input.Name, input.Description, input.Address, input.Phone, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.StoreFront{}, store.ErrStoreExists
		}
		return models.StoreFront{}, err
	}
	return models.StoreFront{
		StoreID:     storeID,
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
		Phone:       input.Phone,
		CreatedAt:   now,
	}, nil
}

func (s *Store) UpdateStore(ctx context.Context, storeID string, input store.StoreInput) (models.StoreFront, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE stores
		SET name = $2, description = $3, address = $4, phone = $5
		WHERE store_id = $1
	`, storeID, input.Name, input.Description, input.Address, input.Phone)
	if err != nil {
		return models.StoreFront{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.StoreFront{}, store.ErrStoreNotFound
	}
	return s.GetStore(ctx, storeID)
}

func (s *Store) ListStores(ctx context.Context, verifiedOnly bool) ([]models.StoreFront, error) {
	query := `
		SELECT st.store_id, st.owner_id, st.name, COALESCE(st.description, ''), COALESCE(st.address, ''), COALESCE(st.phone, ''), st.is_verified, st.created_at,
		       COALESCE(p.full_name, ''), COALESCE(p.email, '')
		FROM stores st
		LEFT JOIN profiles p ON p.user_id = st.owner_id
	`
	if verifiedOnly {
		query += ` WHERE st.is_verified = TRUE`
	}
	query += ` ORDER BY st.created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []models.StoreFront
	for rows.Next() {
		var sf models.StoreFront
		if err := rows.Scan(&sf.StoreID, &sf.OwnerID, &sf.Name, &sf.Description, &sf.Address, &sf.Phone, &sf.Verified, &sf.CreatedAt, &sf.OwnerName, &sf.OwnerEmail); err != nil {
			return nil, err
		}
		stores = append(stores, sf)
	}
	return stores, rows.Err()
}

func (s *Store) SetStoreVerified(ctx context.Context, storeID string, verified bool) (models.StoreFront, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.StoreFront{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `UPDATE stores SET is_verified = $2 WHERE store_id = $1`, storeID, verified)
	if err != nil {
		return models.StoreFront{}, err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrStoreNotFound
		return models.StoreFront{}, err
	}

	eventType := "store.verified"
	if !verified {
		eventType = "store.rejected"
	}
	if err = s.insertOutboxEvent(ctx, tx, eventType, map[string]interface{}{
		"store_id": storeID,
	}); err != nil {
		return models.StoreFront{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.StoreFront{}, err
	}
	return s.GetStore(ctx, storeID)
}

func (s *Store) ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, store_id, name, COALESCE(description, ''), price, COALESCE(category, ''), stock, COALESCE(image_url, ''), is_active, created_at
		FROM products
		WHERE store_id = $1
		ORDER BY created_at DESC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows, false)
}

func (s *Store) SearchProducts(ctx context.Context, query store.ProductQuery) ([]models.Product, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	sql := `
		SELECT pr.product_id, pr.store_id, pr.name, COALESCE(pr.description, ''), pr.price, COALESCE(pr.category, ''), pr.stock, COALESCE(pr.image_url, ''), pr.is_active, pr.created_at,
		       st.name, COALESCE(st.address, '')
		FROM products pr
		JOIN stores st ON st.store_id = pr.store_id
		WHERE pr.is_active = TRUE AND st.is_verified = TRUE
	`
	args := []interface{}{}
	if query.Query != "" {
		pattern := "%" + query.Query + "%"
		args = append(args, pattern)
		n := itoa(len(args))
		sql += ` AND (pr.name ILIKE $` + n + ` OR pr.description ILIKE $` + n + ` OR pr.category ILIKE $` + n + `)`
	}
	if query.Category != "" {
		args = append(args, query.Category)
		sql += ` AND pr.category = $` + itoa(len(args))
	}
	if query.StoreID != "" {
		args = append(args, query.StoreID)
		sql += ` AND pr.store_id = $` + itoa(len(args))
	}
	args = append(args, limit)
	sql += ` ORDER BY pr.created_at DESC LIMIT $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows, true)
}

func scanProducts(rows pgx.Rows, withStore bool) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		dest := []interface{}{&p.ProductID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.ImageURL, &p.Active, &p.CreatedAt}
		if withStore {
			dest = append(dest, &p.StoreName, &p.StoreAddress)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	var p models.Product
	row := s.pool.QueryRow(ctx, `
		SELECT product_id, store_id, name, COALESCE(description, ''), price, COALESCE(category, ''), stock, COALESCE(image_url, ''), is_active, created_at
		FROM products
		WHERE product_id = $1
	`, productID)
	if err := row.Scan(&p.ProductID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.ImageURL, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, store.ErrProductNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, input store.ProductInput) (models.Product, error) {
	productID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Product{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO products (product_id, store_id, name, description, price, category, stock, image_url, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
	`, productID, input.StoreID, input.Name, input.Description, input.Price, input.Category, input.Stock, input.ImageURL, now)
	if err != nil {
		return models.Product{}, err
	}
	if err = s.insertOutboxEvent(ctx, tx, "product.created", map[string]interface{}{
		"product_id": productID,
		"store_id":   input.StoreID,
		"category":   input.Category,
	}); err != nil {
		return models.Product{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Product{}, err
	}

	return models.Product{
		ProductID:   productID,
		StoreID:     input.StoreID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		Active:      true,
		CreatedAt:   now,
	}, nil
}

func (s *Store) UpdateProduct(ctx context.Context, productID string, input store.ProductInput) (models.Product, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, stock = $6, image_url = $7, is_active = $8
		WHERE product_id = $1
	`, productID, input.Name, input.Description, input.Price, input.Category, input.Stock, input.ImageURL, input.Active)
	if err != nil {
		return models.Product{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Product{}, store.ErrProductNotFound
	}
	return s.GetProduct(ctx, productID)
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProductNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]store.UserRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.user_id, u.email, u.full_name, u.created_at,
		       COALESCE(p.full_name, ''), COALESCE(p.email, ''), COALESCE(p.phone, ''), COALESCE(p.address, ''),
		       r.role
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.user_id
		LEFT JOIN user_roles r ON r.user_id = u.user_id
		WHERE u.active = TRUE
		ORDER BY u.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []store.UserRecord
	for rows.Next() {
		var record store.UserRecord
		var role *string
		if err := rows.Scan(&record.Identity.UserID, &record.Identity.Email, &record.Identity.FullName, &record.Identity.Created,
			&record.Profile.FullName, &record.Profile.Email, &record.Profile.Phone, &record.Profile.Address,
			&role); err != nil {
			return nil, err
		}
		record.Profile.UserID = record.Identity.UserID
		if role != nil {
			record.Role = models.RoleAssignment{Role: models.Role(*role), Found: true}
		}
		users = append(users, record)
	}
	return users, rows.Err()
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

func (s *Store) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	lastID := offset.LastEventID
	if lastID == "" {
		lastID = zeroUUID
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, type, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, offset.LastEventTime, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), eventType, data, time.Now().UTC())
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
