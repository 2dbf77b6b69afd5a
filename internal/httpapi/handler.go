package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.Store
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session  models.Session  `json:"session"`
	Identity models.Identity `json:"identity"`
	Role     models.Role     `json:"role"`
}

type roleResponse struct {
	Role  string `json:"role"`
	Found bool   `json:"found"`
}

type adminUser struct {
	Identity models.Identity `json:"identity"`
	Profile  models.Profile  `json:"profile"`
	Role     models.Role     `json:"role"`
	Explicit bool            `json:"role_explicit"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(store store.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/signup", h.handleSignUp)
	mux.HandleFunc("/api/auth/signin", h.handleSignIn)
	mux.HandleFunc("/api/auth/signout", h.handleSignOut)
	mux.HandleFunc("/api/auth/session", h.handleSession)
	mux.HandleFunc("/api/profiles/me", h.handleMyProfile)
	mux.HandleFunc("/api/stores", h.handleStores)
	mux.HandleFunc("/api/stores/mine", h.handleMyStore)
	mux.HandleFunc("/api/stores/mine/products", h.handleMyProducts)
	mux.HandleFunc("/api/stores/", h.handleStoreByID)
	mux.HandleFunc("/api/products", h.handleProducts)
	mux.HandleFunc("/api/products/", h.handleProductByID)
	mux.HandleFunc("/api/users/", h.handleUserRole)
	mux.HandleFunc("/api/admin/users", h.handleAdminUsers)
	mux.HandleFunc("/api/admin/users/", h.handleAdminUserRole)
	mux.HandleFunc("/api/admin/stores", h.handleAdminStores)
	mux.HandleFunc("/api/admin/stores/", h.handleAdminStoreVerify)
	return mux
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signUpRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "weak_password", "password must be at least 6 characters")
		return
	}

	identity, err := h.store.SignUp(r.Context(), store.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signInRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.store.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	role := h.effectiveRole(r, result.Identity.UserID)
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:  result.Session,
		Identity: result.Identity,
		Role:     role,
	})
}

// Sign-out always reports success: the session is gone either way as
// far as the caller is concerned.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	token := bearerToken(r.Header.Get("Authorization"))
	if token != "" {
		if err := h.store.DeleteSession(r.Context(), token); err != nil {
			log.Printf("signout: delete session: %v", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	info, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:  info.Session,
		Identity: info.Identity,
		Role:     info.Role,
	})
}

func (h *Handler) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	info, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := h.store.GetProfile(r.Context(), info.Identity.UserID)
		if err != nil {
			if errors.Is(err, store.ErrProfileNotFound) {
				writeError(w, http.StatusNotFound, "profile_not_found", "profile not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var profile models.Profile
		if !decodeRequest(w, r, &profile) {
			return
		}
		profile.UserID = info.Identity.UserID
		if strings.TrimSpace(profile.Email) == "" {
			profile.Email = info.Identity.Email
		}
		updated, err := h.store.UpsertProfile(r.Context(), profile)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stores, err := h.store.ListStores(r.Context(), true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, stores)
	case http.MethodPost:
		info, ok := requireRole(w, r, models.RoleSeller)
		if !ok {
			return
		}
		var input store.StoreInput
		if !decodeRequest(w, r, &input) {
			return
		}
		input.OwnerID = info.Identity.UserID
		input.Name = strings.TrimSpace(input.Name)
		if input.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		created, err := h.store.CreateStore(r.Context(), input)
		if err != nil {
			if errors.Is(err, store.ErrStoreExists) {
				writeError(w, http.StatusConflict, "store_exists", "owner already has a store")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleMyStore(w http.ResponseWriter, r *http.Request) {
	info, ok := requireRole(w, r, models.RoleSeller)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		sf, err := h.store.GetStoreByOwner(r.Context(), info.Identity.UserID)
		if err != nil {
			if errors.Is(err, store.ErrStoreNotFound) {
				writeError(w, http.StatusNotFound, "store_not_found", "store not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, sf)
	case http.MethodPut:
		var input store.StoreInput
		if !decodeRequest(w, r, &input) {
			return
		}
		current, err := h.store.GetStoreByOwner(r.Context(), info.Identity.UserID)
		if err != nil {
			if errors.Is(err, store.ErrStoreNotFound) {
				writeError(w, http.StatusNotFound, "store_not_found", "store not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		input.Name = strings.TrimSpace(input.Name)
		if input.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		updated, err := h.store.UpdateStore(r.Context(), current.StoreID, input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStoreByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	storeID := strings.TrimPrefix(r.URL.Path, "/api/stores/")
	if !isValidUUID(storeID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "store id must be a UUID")
		return
	}

	sf, err := h.store.GetStore(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, store.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store_not_found", "store not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if !sf.Verified && !h.canSeeUnverified(r, sf) {
		writeError(w, http.StatusNotFound, "store_not_found", "store not found")
		return
	}
	writeJSON(w, http.StatusOK, sf)
}

func (h *Handler) canSeeUnverified(r *http.Request, sf models.StoreFront) bool {
	info, ok := authFromContext(r.Context())
	if !ok {
		return false
	}
	return info.Role == models.RoleAdmin || info.Identity.UserID == sf.OwnerID
}

// handleMyProducts lists every product in the seller's store, including
// inactive ones that the public search hides.
func (h *Handler) handleMyProducts(w http.ResponseWriter, r *http.Request) {
	info, ok := requireRole(w, r, models.RoleSeller)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sf, err := h.store.GetStoreByOwner(r.Context(), info.Identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store_not_found", "store not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	products, err := h.store.ListProducts(r.Context(), sf.StoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := store.ProductQuery{
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			StoreID:  strings.TrimSpace(r.URL.Query().Get("store_id")),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if limit, err := strconv.Atoi(raw); err == nil {
				query.Limit = limit
			}
		}
		products, err := h.store.SearchProducts(r.Context(), query)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		info, ok := requireRole(w, r, models.RoleSeller)
		if !ok {
			return
		}
		var input store.ProductInput
		if !decodeRequest(w, r, &input) {
			return
		}
		input.Name = strings.TrimSpace(input.Name)
		if input.Name == "" || input.Price < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required and price must not be negative")
			return
		}
		// Products always land in the seller's own store.
		sf, err := h.store.GetStoreByOwner(r.Context(), info.Identity.UserID)
		if err != nil {
			if errors.Is(err, store.ErrStoreNotFound) {
				writeError(w, http.StatusConflict, "store_required", "create a store before adding products")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		input.StoreID = sf.StoreID
		created, err := h.store.CreateProduct(r.Context(), input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleProductByID(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if !isValidUUID(productID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "product id must be a UUID")
		return
	}

	info, ok := requireRole(w, r, models.RoleSeller, models.RoleAdmin)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if info.Role != models.RoleAdmin {
		sf, err := h.store.GetStoreByOwner(r.Context(), info.Identity.UserID)
		if err != nil || sf.StoreID != product.StoreID {
			writeError(w, http.StatusForbidden, "access_denied", "product belongs to another store")
			return
		}
	}

	switch r.Method {
	case http.MethodPut:
		var input store.ProductInput
		if !decodeRequest(w, r, &input) {
			return
		}
		input.StoreID = product.StoreID
		input.Name = strings.TrimSpace(input.Name)
		if input.Name == "" || input.Price < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required and price must not be negative")
			return
		}
		updated, err := h.store.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.store.DeleteProduct(r.Context(), productID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// GET /api/users/{id}/role returns the raw assignment; the caller is
// responsible for mapping an absent row to the customer default.
func (h *Handler) handleUserRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := pathSegment(r.URL.Path, "/api/users/", "role")
	if !ok || !isValidUUID(userID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id must be a UUID")
		return
	}

	info, authed := authFromContext(r.Context())
	if !authed {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if info.Identity.UserID != userID && info.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "access_denied", "cannot read another user's role")
		return
	}

	assignment, err := h.store.GetRoleAssignment(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, roleResponse{Role: string(assignment.Role), Found: assignment.Found})
}

func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	users := make([]adminUser, 0, len(records))
	for _, record := range records {
		users = append(users, adminUser{
			Identity: record.Identity,
			Profile:  record.Profile,
			Role:     models.EffectiveRole(record.Role),
			Explicit: record.Role.Found,
		})
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleAdminUserRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, ok := pathSegment(r.URL.Path, "/api/admin/users/", "role")
	if !ok || !isValidUUID(userID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id must be a UUID")
		return
	}

	var payload struct {
		Role string `json:"role"`
	}
	if !decodeRequest(w, r, &payload) {
		return
	}
	role := models.Role(strings.TrimSpace(payload.Role))
	if !models.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be admin, seller, or customer")
		return
	}

	if err := h.store.UpsertRole(r.Context(), userID, role); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminStores(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stores, err := h.store.ListStores(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *Handler) handleAdminStoreVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	storeID, ok := pathSegment(r.URL.Path, "/api/admin/stores/", "verify")
	if !ok || !isValidUUID(storeID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "store id must be a UUID")
		return
	}

	var payload struct {
		Verified bool `json:"verified"`
	}
	if !decodeRequest(w, r, &payload) {
		return
	}

	sf, err := h.store.SetStoreVerified(r.Context(), storeID, payload.Verified)
	if err != nil {
		if errors.Is(err, store.ErrStoreNotFound) {
			writeError(w, http.StatusNotFound, "store_not_found", "store not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sf)
}

func (h *Handler) effectiveRole(r *http.Request, userID string) models.Role {
	assignment, err := h.store.GetRoleAssignment(r.Context(), userID)
	if err != nil {
		log.Printf("role lookup failed for user %s: %v", userID, err)
		return models.RoleCustomer
	}
	return models.EffectiveRole(assignment)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

// pathSegment extracts {id} from prefix + "{id}/" + suffix.
func pathSegment(path, prefix, suffix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != suffix {
		return "", false
	}
	return parts[0], true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
