package user

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

type Handler struct {
	userService  Service
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	userService Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if userService == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &Handler{
		userService:  userService,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

// respondServiceError renders errors of the shared taxonomy with their own
// message and hides everything else behind fallback.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.respondError(w, status, fallback)
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor, ok := policy.ActorFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return actor, ok
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(r.Context(), actor)
	if err != nil {
		h.respondServiceError(w, err, "Could not fetch users")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   users,
	})
}

func (h *Handler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	h.getUser(w, r, actor.ID, actor)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	h.getUser(w, r, id, actor)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, id int64, actor policy.Actor) {
	user, err := h.userService.GetUser(r.Context(), id, actor)
	if err != nil {
		h.respondServiceError(w, err, "Could not fetch user data")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   user,
	})
}

func (h *Handler) HandleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	h.updateUser(w, r, actor.ID, actor)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	h.updateUser(w, r, id, actor)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, id int64, actor policy.Actor) {
	var req UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), id, req, actor)
	if err != nil {
		h.respondServiceError(w, err, "Could not update user")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   user,
	})
}

func (h *Handler) HandleDeleteCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.deleteUser(w, r, actor.ID, req.Password, actor)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.deleteUser(w, r, id, req.Password, actor)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, id int64, password string, actor policy.Actor) {
	if err := h.userService.DeleteUser(r.Context(), id, password, actor); err != nil {
		h.respondServiceError(w, err, "Could not delete user")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "User deleted successfully",
	})
}
