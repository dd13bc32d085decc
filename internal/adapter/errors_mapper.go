// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// errorBody is the JSON error envelope of recipe servers. Existing is only
// sent with a 409 answer to a create request.
type errorBody struct {
	Error    string               `json:"error"`
	Existing *models.RemoteRecord `json:"existing,omitempty"`
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := errorMessage(resp.Body())

	switch code := resp.StatusCode(); {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, body)
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrServerError, code, body)
	default:
		if body == "" {
			body = http.StatusText(code)
		}
		return fmt.Errorf("%w: http %d: %s", ErrBadRequest, code, body)
	}
}

// mapCreateError is mapHTTPError for create requests: a 409 carrying the
// existing record becomes an AlreadyExistsError.
func mapCreateError(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusConflict {
		var eb errorBody
		if err := json.Unmarshal(resp.Body(), &eb); err == nil && eb.Existing != nil && eb.Existing.ID != "" {
			return &AlreadyExistsError{Existing: *eb.Existing}
		}
	}
	return mapHTTPError(resp)
}

func errorMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return strings.TrimSpace(string(raw))
}
