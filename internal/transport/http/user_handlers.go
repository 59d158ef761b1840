package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"popreg/internal/user"
	dErrors "popreg/pkg/domain-errors"
)

// userView strips the credential hash before the account crosses the HTTP
// boundary.
func userView(u *user.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"realName":   u.RealName,
		"phone":      u.Phone,
		"email":      u.Email,
		"avatar":     u.Avatar,
		"role":       u.Role,
		"status":     u.Status,
		"createTime": u.CreatedAt,
		"updateTime": u.UpdatedAt,
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

// canWriteUser scopes account writes: a user may modify their own account,
// administrators may modify any.
func canWriteUser(r *http.Request, id int64) bool {
	claims := ClaimsFrom(r.Context())
	return claims != nil && (claims.UserID == id || claims.Role == user.RoleAdmin)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if !canWriteUser(r, id) {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "cannot modify another user's account"))
		return
	}

	var u user.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	u.ID = id
	// Credential changes are not accepted on this route; the stored hash is
	// carried over unchanged.
	u.Password = ""

	if err := h.users.Update(r.Context(), &u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userView(&u))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if !canWriteUser(r, id) {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "cannot modify another user's account"))
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
