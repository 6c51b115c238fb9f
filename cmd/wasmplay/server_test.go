package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*gameServer, http.Handler) {
	t.Helper()
	s, err := newGameServer(newTestApp(t))
	require.NoError(t, err)
	return s, s.handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, h := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestTickEndpoint(t *testing.T) {
	s, h := setupTestServer(t)

	w := postJSON(t, h, "/key", keyRequest{Key: "d", Pressed: true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = postJSON(t, h, "/tick", tickRequest{Frames: 3})
	require.Equal(t, http.StatusOK, w.Code)

	var resp tickResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Frame)
	assert.True(t, resp.Running)
	assert.Equal(t, 2, resp.Handles)
	assert.Empty(t, resp.Error)
	assert.InDelta(t, 50+0.3*20, playerX(s.app), 1e-9)

	// empty body ticks once
	req := httptest.NewRequest(http.MethodPost, "/tick", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 4, resp.Frame)
}

func TestTickEndpointErrors(t *testing.T) {
	s, h := setupTestServer(t)

	w := postJSON(t, h, "/tick", tickRequest{Frames: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, h, "/tick", tickRequest{Frames: maxTickFrames + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.frame)

	req := httptest.NewRequest(http.MethodPost, "/tick", strings.NewReader("{"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/tick", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestKeyEndpointErrors(t *testing.T) {
	_, h := setupTestServer(t)

	w := postJSON(t, h, "/key", keyRequest{Pressed: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/key", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestFrameEndpoint(t *testing.T) {
	_, h := setupTestServer(t)
	postJSON(t, h, "/tick", tickRequest{Frames: 1})

	req := httptest.NewRequest(http.MethodGet, "/frame.png", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := setupTestServer(t)
	postJSON(t, h, "/tick", tickRequest{Frames: 2})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wasmplay_frames_total 2")
}
