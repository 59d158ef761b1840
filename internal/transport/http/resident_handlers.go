package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"popreg/internal/resident"
	dErrors "popreg/pkg/domain-errors"
)

func (h *Handler) handleCreateResident(w http.ResponseWriter, r *http.Request) {
	var res resident.Resident
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	res.ID = 0
	res.Deleted = false

	if err := h.residents.Create(r.Context(), &res); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGetResident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.residents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "resident not found"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetResidentByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.residents.GetByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "resident not found"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetResidentByCard(w http.ResponseWriter, r *http.Request) {
	idCard := chi.URLParam(r, "idCard")

	res, err := h.residents.GetByIDCard(r.Context(), idCard)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "resident not found"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUpdateResident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var res resident.Resident
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	res.ID = id

	if err := h.residents.Update(r.Context(), &res); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDeleteResident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.residents.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
