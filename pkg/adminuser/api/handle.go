package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-admin/pkg/adminuser"
	"github.com/tendant/simple-admin/pkg/auth"
	"github.com/tendant/simple-admin/pkg/errors"
)

type Handle struct {
	service *adminuser.AdminUserService
}

func NewHandle(service *adminuser.AdminUserService) Handle {
	return Handle{
		service: service,
	}
}

// ErrorStatus is the structured failure payload returned on any error.
type ErrorStatus struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the failure payload.
type ErrorResponse struct {
	Status ErrorStatus `json:"status"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, ErrorResponse{
		Status: ErrorStatus{
			Code:    string(code),
			Message: err.Error(),
			Details: errors.GetDetails(err),
		},
	})
}

// Get user details by id
// (GET /users/{id})
func (h Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	response, err := h.service.GetUser(r.Context(), adminuser.GetUserRequest{ID: id})
	if err != nil {
		slog.Error("Failed getting user", "id", id, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, response)
}

// Search or list users
// (GET /users)
func (h Handle) QueryUsers(w http.ResponseWriter, r *http.Request) {
	req := adminuser.QueryUsersRequest{
		Query:   r.URL.Query().Get("query"),
		OrderBy: r.URL.Query().Get("orderBy"),
		Skip:    intQueryParam(r, "skip"),
		Take:    intQueryParam(r, "take"),
	}

	response, err := h.service.QueryUsers(r.Context(), req)
	if err != nil {
		slog.Error("Failed querying users", "query", req.Query, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, response)
}

// Create a new user
// (POST /users)
func (h Handle) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminuser.CreateUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	response, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		slog.Error("Failed creating user", "userName", req.UserName, "error", err)
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response)
}

// Update user details by id
// (PUT /users/{id})
func (h Handle) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminuser.UpdateUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	req.ID = chi.URLParam(r, "id")

	response, err := h.service.UpdateUser(r.Context(), req)
	if err != nil {
		slog.Error("Failed updating user", "id", req.ID, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, response)
}

// Delete user by id
// (DELETE /users/{id})
func (h Handle) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	response, err := h.service.DeleteUser(r.Context(), adminuser.DeleteUserRequest{ID: id})
	if err != nil {
		slog.Error("Failed deleting user", "id", id, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, response)
}

// Get the published feature metadata
// (GET /info)
func (h Handle) GetInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Info())
}

// Routes mounts the admin user endpoints on the given router. Callers are
// expected to have applied authentication middleware already.
func Routes(r chi.Router, h Handle) {
	r.Get("/users", h.QueryUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{id}", h.GetUser)
	r.Put("/users/{id}", h.UpdateUser)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Get("/info", h.GetInfo)
}

// SecureRoutes mounts the admin user endpoints behind the admin role check.
func SecureRoutes(r chi.Router, h Handle, adminRole string) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(adminRole))
		Routes(r, h)
	})
}

func intQueryParam(r *http.Request, name string) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
