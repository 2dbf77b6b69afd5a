package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"
)

type fakeStore struct {
	signUpFn       func(ctx context.Context, input store.SignUpInput) (models.Identity, error)
	signInFn       func(ctx context.Context, email, password string) (store.SignInResult, error)
	getSessionFn   func(ctx context.Context, token string) (models.Session, models.Identity, error)
	roleFn         func(ctx context.Context, userID string) (models.RoleAssignment, error)
	upsertRoleFn   func(ctx context.Context, userID string, role models.Role) error
	storeByOwnerFn func(ctx context.Context, ownerID string) (models.StoreFront, error)
	listStoresFn   func(ctx context.Context, verifiedOnly bool) ([]models.StoreFront, error)
	setVerifiedFn  func(ctx context.Context, storeID string, verified bool) (models.StoreFront, error)
	searchFn       func(ctx context.Context, query store.ProductQuery) ([]models.Product, error)
	listProductsFn func(ctx context.Context, storeID string) ([]models.Product, error)
	getProductFn   func(ctx context.Context, productID string) (models.Product, error)
	createProdFn   func(ctx context.Context, input store.ProductInput) (models.Product, error)
	updateProdFn   func(ctx context.Context, productID string, input store.ProductInput) (models.Product, error)
	createStoreFn  func(ctx context.Context, input store.StoreInput) (models.StoreFront, error)
}

func (f fakeStore) SignUp(ctx context.Context, input store.SignUpInput) (models.Identity, error) {
	if f.signUpFn == nil {
		return models.Identity{}, nil
	}
	return f.signUpFn(ctx, input)
}

func (f fakeStore) SignIn(ctx context.Context, email, password string) (store.SignInResult, error) {
	if f.signInFn == nil {
		return store.SignInResult{}, store.ErrInvalidCredentials
	}
	return f.signInFn(ctx, email, password)
}

func (f fakeStore) GetSession(ctx context.Context, token string) (models.Session, models.Identity, error) {
	if f.getSessionFn == nil {
		return models.Session{}, models.Identity{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, token)
}

func (f fakeStore) DeleteSession(ctx context.Context, token string) error { return nil }

func (f fakeStore) GetRoleAssignment(ctx context.Context, userID string) (models.RoleAssignment, error) {
	if f.roleFn == nil {
		return models.RoleAssignment{}, nil
	}
	return f.roleFn(ctx, userID)
}

func (f fakeStore) UpsertRole(ctx context.Context, userID string, role models.Role) error {
	if f.upsertRoleFn == nil {
		return nil
	}
	return f.upsertRoleFn(ctx, userID, role)
}

func (f fakeStore) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	return models.Profile{}, store.ErrProfileNotFound
}

func (f fakeStore) UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	return profile, nil
}

func (f fakeStore) GetStore(ctx context.Context, storeID string) (models.StoreFront, error) {
	return models.StoreFront{}, store.ErrStoreNotFound
}

func (f fakeStore) GetStoreByOwner(ctx context.Context, ownerID string) (models.StoreFront, error) {
	if f.storeByOwnerFn == nil {
		return models.StoreFront{}, store.ErrStoreNotFound
	}
	return f.storeByOwnerFn(ctx, ownerID)
}

func (f fakeStore) CreateStore(ctx context.Context, input store.StoreInput) (models.StoreFront, error) {
	if f.createStoreFn == nil {
		return models.StoreFront{}, nil
	}
	return f.createStoreFn(ctx, input)
}

func (f fakeStore) UpdateStore(ctx context.Context, storeID string, input store.StoreInput) (models.StoreFront, error) {
	return models.StoreFront{}, nil
}

func (f fakeStore) ListStores(ctx context.Context, verifiedOnly bool) ([]models.StoreFront, error) {
	if f.listStoresFn == nil {
		return nil, nil
	}
	return f.listStoresFn(ctx, verifiedOnly)
}

func (f fakeStore) SetStoreVerified(ctx context.Context, storeID string, verified bool) (models.StoreFront, error) {
	if f.setVerifiedFn == nil {
		return models.StoreFront{}, store.ErrStoreNotFound
	}
	return f.setVerifiedFn(ctx, storeID, verified)
}

func (f fakeStore) ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	if f.listProductsFn == nil {
		return nil, nil
	}
	return f.listProductsFn(ctx, storeID)
}

func (f fakeStore) SearchProducts(ctx context.Context, query store.ProductQuery) ([]models.Product, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, query)
}

func (f fakeStore) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	if f.getProductFn == nil {
		return models.Product{}, store.ErrProductNotFound
	}
	return f.getProductFn(ctx, productID)
}

func (f fakeStore) CreateProduct(ctx context.Context, input store.ProductInput) (models.Product, error) {
	if f.createProdFn == nil {
		return models.Product{}, nil
	}
	return f.createProdFn(ctx, input)
}

func (f fakeStore) UpdateProduct(ctx context.Context, productID string, input store.ProductInput) (models.Product, error) {
	if f.updateProdFn == nil {
		return models.Product{}, nil
	}
	return f.updateProdFn(ctx, productID, input)
}

func (f fakeStore) DeleteProduct(ctx context.Context, productID string) error { return nil }

func (f fakeStore) ListUsers(ctx context.Context) ([]store.UserRecord, error) { return nil, nil }

func (f fakeStore) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	return nil, nil
}

func serve(st store.Store, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	AuthMiddleware(st, NewHandler(st).Routes()).ServeHTTP(resp, req)
	return resp
}

func sessionStore(userID string, role models.Role) fakeStore {
	identity := models.Identity{UserID: userID, Email: userID + "@example.com"}
	session := models.Session{Token: "tok-1", UserID: userID, ExpiresAt: time.Now().UTC().Add(time.Hour)}
	st := fakeStore{
		getSessionFn: func(ctx context.Context, token string) (models.Session, models.Identity, error) {
			if token != "tok-1" {
				return models.Session{}, models.Identity{}, store.ErrSessionNotFound
			}
			return session, identity, nil
		},
	}
	if role != "" {
		st.roleFn = func(ctx context.Context, id string) (models.RoleAssignment, error) {
			return models.RoleAssignment{Role: role, Found: true}, nil
		}
	}
	return st
}

func jsonBody(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func TestSignUpSuccess(t *testing.T) {
	st := fakeStore{
		signUpFn: func(ctx context.Context, input store.SignUpInput) (models.Identity, error) {
			return models.Identity{UserID: "user-1", Email: input.Email, FullName: input.FullName}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, map[string]string{
		"email":     "a@x.com",
		"password":  "123456",
		"full_name": "A",
	}))

	resp := serve(st, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSignUpEmailTaken(t *testing.T) {
	st := fakeStore{
		signUpFn: func(ctx context.Context, input store.SignUpInput) (models.Identity, error) {
			return models.Identity{}, store.ErrEmailTaken
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, map[string]string{
		"email":    "a@x.com",
		"password": "123456",
	}))

	resp := serve(st, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestSignUpWeakPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", jsonBody(t, map[string]string{
		"email":    "a@x.com",
		"password": "123",
	}))

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestSignInReturnsRole(t *testing.T) {
	st := fakeStore{
		signInFn: func(ctx context.Context, email, password string) (store.SignInResult, error) {
			return store.SignInResult{
				Identity: models.Identity{UserID: "user-1", Email: email},
				Session:  models.Session{Token: "tok-1", UserID: "user-1"},
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", jsonBody(t, map[string]string{
		"email":    "a@x.com",
		"password": "123456",
	}))

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload sessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Role != models.RoleCustomer {
		t.Fatalf("expected customer default role, got %q", payload.Role)
	}
	if payload.Identity.Email != "a@x.com" {
		t.Fatalf("unexpected identity email %q", payload.Identity.Email)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", jsonBody(t, map[string]string{
		"email":    "a@x.com",
		"password": "wrong",
	}))

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestSignOutWithoutSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
}

func TestSessionRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)

	resp := serve(fakeStore{}, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestSessionRestore(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload sessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Role != models.RoleSeller {
		t.Fatalf("expected seller role, got %q", payload.Role)
	}
}

func TestMyStoreDeniedForCustomer(t *testing.T) {
	st := sessionStore("user-1", models.RoleCustomer)
	req := httptest.NewRequest(http.MethodGet, "/api/stores/mine", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestMyStoreForSeller(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	st.storeByOwnerFn = func(ctx context.Context, ownerID string) (models.StoreFront, error) {
		return models.StoreFront{StoreID: "22222222-2222-2222-2222-222222222222", OwnerID: ownerID, Name: "Warung Bu Siti"}, nil
	}
	req := httptest.NewRequest(http.MethodGet, "/api/stores/mine", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateProductDecodesWireFormat(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	st.storeByOwnerFn = func(ctx context.Context, ownerID string) (models.StoreFront, error) {
		return models.StoreFront{StoreID: "22222222-2222-2222-2222-222222222222", OwnerID: ownerID}, nil
	}
	var got store.ProductInput
	st.createProdFn = func(ctx context.Context, input store.ProductInput) (models.Product, error) {
		got = input
		return models.Product{ProductID: "33333333-3333-3333-3333-333333333333", StoreID: input.StoreID, Name: input.Name}, nil
	}

	body := jsonBody(t, map[string]interface{}{
		"name":        "Kain Sasirangan",
		"description": "Kain khas Banjarbaru",
		"price":       150000,
		"category":    "kerajinan",
		"stock":       12,
		"image_url":   "https://example.com/sasirangan.jpg",
		"is_active":   true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if got.StoreID != "22222222-2222-2222-2222-222222222222" {
		t.Fatalf("expected product scoped to the seller's store, got %q", got.StoreID)
	}
	if got.ImageURL != "https://example.com/sasirangan.jpg" || !got.Active || got.Stock != 12 {
		t.Fatalf("wire fields lost in decode: %+v", got)
	}
}

func TestUpdateProductDecodesWireFormat(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	st.storeByOwnerFn = func(ctx context.Context, ownerID string) (models.StoreFront, error) {
		return models.StoreFront{StoreID: "22222222-2222-2222-2222-222222222222", OwnerID: ownerID}, nil
	}
	st.getProductFn = func(ctx context.Context, productID string) (models.Product, error) {
		return models.Product{ProductID: productID, StoreID: "22222222-2222-2222-2222-222222222222", Name: "Amplang"}, nil
	}
	var got store.ProductInput
	st.updateProdFn = func(ctx context.Context, productID string, input store.ProductInput) (models.Product, error) {
		got = input
		return models.Product{ProductID: productID, StoreID: input.StoreID, Name: input.Name, Active: input.Active}, nil
	}

	body := jsonBody(t, map[string]interface{}{
		"name":        "Amplang Gabus",
		"description": "",
		"price":       25000,
		"category":    "makanan",
		"stock":       0,
		"image_url":   "",
		"is_active":   false,
	})
	req := httptest.NewRequest(http.MethodPut, "/api/products/33333333-3333-3333-3333-333333333333", body)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Name != "Amplang Gabus" || got.Active || got.Stock != 0 {
		t.Fatalf("wire fields lost in decode: %+v", got)
	}
	if got.StoreID != "22222222-2222-2222-2222-222222222222" {
		t.Fatalf("expected store scope preserved, got %q", got.StoreID)
	}
}

func TestMyProductsIncludesInactive(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	st.storeByOwnerFn = func(ctx context.Context, ownerID string) (models.StoreFront, error) {
		return models.StoreFront{StoreID: "22222222-2222-2222-2222-222222222222", OwnerID: ownerID, Name: "Warung Bu Siti"}, nil
	}
	st.listProductsFn = func(ctx context.Context, storeID string) ([]models.Product, error) {
		return []models.Product{
			{ProductID: "p-1", StoreID: storeID, Name: "Amplang", Active: true},
			{ProductID: "p-2", StoreID: storeID, Name: "Kain Sasirangan", Active: false},
		}, nil
	}
	req := httptest.NewRequest(http.MethodGet, "/api/stores/mine/products", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var products []models.Product
	if err := json.Unmarshal(resp.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestMyProductsRequiresSession(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	req := httptest.NewRequest(http.MethodGet, "/api/stores/mine/products", nil)

	resp := serve(st, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAdminVerifyRequiresAdmin(t *testing.T) {
	st := sessionStore("user-1", models.RoleSeller)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/stores/22222222-2222-2222-2222-222222222222/verify", jsonBody(t, map[string]bool{"verified": true}))
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestAdminVerifyStore(t *testing.T) {
	st := sessionStore("user-1", models.RoleAdmin)
	st.setVerifiedFn = func(ctx context.Context, storeID string, verified bool) (models.StoreFront, error) {
		return models.StoreFront{StoreID: storeID, Verified: verified}, nil
	}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/stores/22222222-2222-2222-2222-222222222222/verify", jsonBody(t, map[string]bool{"verified": true}))
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var sf models.StoreFront
	if err := json.Unmarshal(resp.Body.Bytes(), &sf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sf.Verified {
		t.Fatal("expected verified store in response")
	}
}

func TestUpdateRoleValidation(t *testing.T) {
	st := sessionStore("user-1", models.RoleAdmin)
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/33333333-3333-3333-3333-333333333333/role", jsonBody(t, map[string]string{"role": "superuser"}))
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestSearchIsPublic(t *testing.T) {
	st := fakeStore{
		searchFn: func(ctx context.Context, query store.ProductQuery) ([]models.Product, error) {
			if query.Query != "keripik" {
				t.Fatalf("unexpected query %q", query.Query)
			}
			return []models.Product{{ProductID: "p1", Name: "Keripik Singkong"}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/products?q=keripik", nil)

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestOwnRoleReadable(t *testing.T) {
	st := sessionStore("44444444-4444-4444-4444-444444444444", "")
	req := httptest.NewRequest(http.MethodGet, "/api/users/44444444-4444-4444-4444-444444444444/role", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload roleResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Found {
		t.Fatal("expected no explicit assignment")
	}
}

func TestOtherRoleDeniedForNonAdmin(t *testing.T) {
	st := sessionStore("44444444-4444-4444-4444-444444444444", models.RoleCustomer)
	req := httptest.NewRequest(http.MethodGet, "/api/users/55555555-5555-5555-5555-555555555555/role", nil)
	req.Header.Set("Authorization", "Bearer tok-1")

	resp := serve(st, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}
