// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-recipe-sync/internal/config"
	"github.com/MKhiriev/go-recipe-sync/internal/logger"
	"github.com/MKhiriev/go-recipe-sync/internal/utils"
	"github.com/MKhiriev/go-recipe-sync/models"
)

const defaultUserAgent = "go-recipe-sync"

const (
	loginPath  = "/api/auth/login"
	healthPath = "/api/health"
)

type httpServerAdapter struct {
	client *utils.HTTPClient

	requestTimeout time.Duration
	probeTimeout   time.Duration

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of [ServerAdapter].
// Data and login calls are bounded by adapterCfg.RequestTimeout, health probes
// by adapterCfg.ProbeTimeout. A call whose deadline passes fails with
// [ErrTransport].
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) ServerAdapter {
	userAgent := adapterCfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &httpServerAdapter{
		client:         utils.NewHTTPClient(userAgent, 0),
		requestTimeout: adapterCfg.RequestTimeout,
		probeTimeout:   adapterCfg.ProbeTimeout,
		logger:         logger,
	}
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidBaseURL)
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: address must include host and scheme", ErrInvalidBaseURL)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func recordsPath(recordType models.RecordType) (string, error) {
	resource := recordType.Resource()
	if resource == "" {
		return "", fmt.Errorf("%w: unknown record type %q", ErrBadRequest, recordType)
	}
	return "/api/" + resource, nil
}

// Login implements [ServerAdapter]. It POSTs creds to POST /api/auth/login.
// The token is read from the JSON body, falling back to the Authorization
// response header.
func (h *httpServerAdapter) Login(ctx context.Context, baseURL string, creds models.Credentials) (models.Token, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return models.Token{}, err
	}

	ctx, cancel := withTimeout(ctx, h.requestTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(creds).
		Post(base + loginPath)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: login request: %w", ErrTransport, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	var token models.Token
	if len(resp.Body()) > 0 {
		if err = json.Unmarshal(resp.Body(), &token); err != nil {
			return models.Token{}, fmt.Errorf("decode login response: %w", err)
		}
	}
	if token.AccessToken == "" {
		token.AccessToken, err = utils.ParseBearerToken(resp.Header().Get("Authorization"))
		if err != nil {
			return models.Token{}, fmt.Errorf("login parse bearer token: %w", err)
		}
	}

	expiresAt, err := utils.ParseTokenExpiry(token.AccessToken)
	if err != nil {
		// opaque tokens are fine, they just never expire client-side
		h.logger.Debug().Err(err).Str("server", base).Msg("login token carries no readable expiry")
	}
	token.ExpiresAt = expiresAt

	return token, nil
}

// Ping implements [ServerAdapter] with GET /api/health.
func (h *httpServerAdapter) Ping(ctx context.Context, baseURL string) error {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, h.probeTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		Get(base + healthPath)
	if err != nil {
		return fmt.Errorf("%w: health request: %w", ErrTransport, err)
	}

	return mapHTTPError(resp)
}

// ListRecords implements [ServerAdapter] with GET /api/{resource}. A bounded
// window is sent as "from" and "to" query parameters in RFC 3339.
func (h *httpServerAdapter) ListRecords(ctx context.Context, target Target, recordType models.RecordType, window models.FilterWindow) ([]models.RemoteRecord, error) {
	req, path, cancel, err := h.authedRequest(ctx, target, recordType)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if window.From != nil {
		req.SetQueryParam("from", window.From.UTC().Format(time.RFC3339Nano))
	}
	if window.To != nil {
		req.SetQueryParam("to", window.To.UTC().Format(time.RFC3339Nano))
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: list request: %w", ErrTransport, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var records []models.RemoteRecord
	if err = json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	return records, nil
}

// CreateRecord implements [ServerAdapter] with POST /api/{resource}.
func (h *httpServerAdapter) CreateRecord(ctx context.Context, target Target, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error) {
	req, path, cancel, err := h.authedRequest(ctx, target, recordType)
	if err != nil {
		return models.RemoteRecord{}, err
	}
	defer cancel()

	record.ID = ""
	resp, err := req.SetBody(record).Post(path)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	if err = mapCreateError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	return decodeRecord(resp, "create")
}

// UpdateRecord implements [ServerAdapter] with PUT /api/{resource}/{id}.
func (h *httpServerAdapter) UpdateRecord(ctx context.Context, target Target, recordType models.RecordType, record models.RemoteRecord) (models.RemoteRecord, error) {
	if record.ID == "" {
		return models.RemoteRecord{}, fmt.Errorf("%w: update without server id", ErrBadRequest)
	}

	req, path, cancel, err := h.authedRequest(ctx, target, recordType)
	if err != nil {
		return models.RemoteRecord{}, err
	}
	defer cancel()

	resp, err := req.SetBody(record).Put(path + "/" + url.PathEscape(record.ID))
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("%w: update request: %w", ErrTransport, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	return decodeRecord(resp, "update")
}

// DeleteRecord implements [ServerAdapter] with DELETE /api/{resource}/{id}.
func (h *httpServerAdapter) DeleteRecord(ctx context.Context, target Target, recordType models.RecordType, serverID string) error {
	if serverID == "" {
		return fmt.Errorf("%w: delete without server id", ErrBadRequest)
	}

	req, path, cancel, err := h.authedRequest(ctx, target, recordType)
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := req.Delete(path + "/" + url.PathEscape(serverID))
	if err != nil {
		return fmt.Errorf("%w: delete request: %w", ErrTransport, err)
	}

	return mapHTTPError(resp)
}

// authedRequest prepares a request against target's record collection. The
// returned cancel func releases the per-call timeout.
func (h *httpServerAdapter) authedRequest(ctx context.Context, target Target, recordType models.RecordType) (*resty.Request, string, context.CancelFunc, error) {
	base, err := normalizeBaseURL(target.BaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	path, err := recordsPath(recordType)
	if err != nil {
		return nil, "", nil, err
	}

	ctx, cancel := withTimeout(ctx, h.requestTimeout)

	req := h.client.R().SetContext(ctx)
	if target.Token != "" {
		req.SetAuthToken(target.Token)
	}
	return req, base + path, cancel, nil
}

func decodeRecord(resp *resty.Response, op string) (models.RemoteRecord, error) {
	var record models.RemoteRecord
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("decode %s response: %w", op, err)
	}
	return record, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
