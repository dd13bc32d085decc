// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-recipe-sync/internal/app"
	"github.com/MKhiriev/go-recipe-sync/internal/store"
)

type errorResponse struct {
	status  int
	message string
}

var errorStatusMap = map[error]errorResponse{
	ErrUnknownResource: {http.StatusNotFound, app.MsgUnknownResource},
	ErrInvalidWindow:   {http.StatusBadRequest, app.MsgInvalidDataProvided},
	ErrInvalidRecord:   {http.StatusBadRequest, app.MsgInvalidDataProvided},

	store.ErrRemoteRecordNotFound: {http.StatusNotFound, app.MsgRecordNotFound},
	store.ErrNaturalKeyTaken:      {http.StatusConflict, app.MsgRecordAlreadyExists},
}

func responseFromError(err error) errorResponse {
	for target, resp := range errorStatusMap {
		if errors.Is(err, target) {
			return resp
		}
	}
	return errorResponse{http.StatusInternalServerError, app.MsgInternalServerError}
}
