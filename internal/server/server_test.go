// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(okHandler(), "", logger.Nop())
	assert.ErrorIs(t, err, ErrInvalidServerParams)

	_, err = NewServer(nil, ":0", logger.Nop())
	assert.ErrorIs(t, err, ErrInvalidServerParams)

	s, err := NewServer(okHandler(), "127.0.0.1:0", logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestServer_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := NewServer(okHandler(), "127.0.0.1:0", logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.(*server).run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestServer_BindErrorReturns(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	// адрес уже занят: run должен вернуться сам
	s, err := NewServer(okHandler(), l.Addr().String(), logger.Nop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.(*server).run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return on bind error")
	}
}

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := newHTTPServer(okHandler(), l.Addr().String(), logger.Nop())
	served := make(chan error, 1)
	go func() { served <- h.serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	h.Shutdown()
	assert.NoError(t, <-served)
}
