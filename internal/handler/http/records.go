// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-recipe-sync/internal/app"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/internal/validators"
	"github.com/MKhiriev/go-recipe-sync/models"
)

// conflictBody answers a create request whose natural key is taken.
type conflictBody struct {
	Error    string              `json:"error"`
	Existing models.RemoteRecord `json:"existing"`
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	recordType, err := recordTypeFromRequest(r)
	if err != nil {
		h.writeError(w, log, "*Handler.listRecords", err)
		return
	}

	window, err := windowFromRequest(r)
	if err != nil {
		h.writeError(w, log, "*Handler.listRecords", err)
		return
	}

	records, err := h.records.List(r.Context(), recordType, window)
	if err != nil {
		h.writeError(w, log, "*Handler.listRecords", err)
		return
	}

	utils.WriteJSON(w, records, http.StatusOK)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	recordType, err := recordTypeFromRequest(r)
	if err != nil {
		h.writeError(w, log, "*Handler.createRecord", err)
		return
	}

	record, err := h.recordFromBody(r)
	if err != nil {
		h.writeError(w, log, "*Handler.createRecord", err)
		return
	}

	created, err := h.records.Create(r.Context(), recordType, record)
	if errors.Is(err, store.ErrNaturalKeyTaken) {
		log.Info().Str("key", record.NaturalKey).Str("existing_id", created.ID).Msg("record already exists")
		utils.WriteJSON(w, conflictBody{Error: app.MsgRecordAlreadyExists, Existing: created}, http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, log, "*Handler.createRecord", err)
		return
	}

	utils.WriteJSON(w, created, http.StatusCreated)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	recordType, err := recordTypeFromRequest(r)
	if err != nil {
		h.writeError(w, log, "*Handler.updateRecord", err)
		return
	}

	record, err := h.recordFromBody(r)
	if err != nil {
		h.writeError(w, log, "*Handler.updateRecord", err)
		return
	}
	// the path wins over whatever id the body carries
	record.ID = chi.URLParam(r, "id")

	updated, err := h.records.Update(r.Context(), recordType, record)
	if err != nil {
		h.writeError(w, log, "*Handler.updateRecord", err)
		return
	}

	utils.WriteJSON(w, updated, http.StatusOK)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	recordType, err := recordTypeFromRequest(r)
	if err != nil {
		h.writeError(w, log, "*Handler.deleteRecord", err)
		return
	}

	if err = h.records.Delete(r.Context(), recordType, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, log, "*Handler.deleteRecord", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, log *logger.Logger, fn string, err error) {
	resp := responseFromError(err)
	if resp.status >= http.StatusInternalServerError {
		log.Err(err).Str("func", fn).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("func", fn).Int("status", resp.status).Msg("request rejected")
	}
	utils.WriteError(w, resp.message, resp.status)
}

func recordTypeFromRequest(r *http.Request) (models.RecordType, error) {
	resource := chi.URLParam(r, "resource")
	for _, rt := range models.AllRecordTypes {
		if rt.Resource() == resource {
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, resource)
}

func windowFromRequest(r *http.Request) (models.FilterWindow, error) {
	var window models.FilterWindow
	for name, target := range map[string]**time.Time{"from": &window.From, "to": &window.To} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return models.FilterWindow{}, fmt.Errorf("%w: %s: %w", ErrInvalidWindow, name, err)
		}
		*target = &t
	}
	return window, nil
}

func (h *Handler) recordFromBody(r *http.Request) (models.RemoteRecord, error) {
	var record models.RemoteRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := h.validator.Validate(r.Context(), record, validators.FieldPayload); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return record, nil
}
