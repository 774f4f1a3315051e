package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/auth"
)

func request(method, target, body string, user *auth.User, vars map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r = r.WithContext(auth.WithUser(r.Context(), user))
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}

func TestHandler_CreateAndGet(t *testing.T) {
	h := NewHandler(NewMemory())
	owner := &auth.User{ID: "user_a", DisplayName: "Ada"}

	rec := httptest.NewRecorder()
	h.Create(rec, request(http.MethodPost, "/api/boards", `{"name":""}`, owner, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, request(http.MethodPost, "/api/boards", `{"name":"Plan"}`, owner, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var b Board
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	assert.Equal(t, "Plan", b.Name)

	rec = httptest.NewRecorder()
	h.Get(rec, request(http.MethodGet, "/api/boards/"+b.ID, "", owner, map[string]string{"boardId": b.ID}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.LatestSnapshot(rec, request(http.MethodGet, "/", "", owner, map[string]string{"boardId": b.ID}))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 1, snap.Version)
}

func TestHandler_Errors(t *testing.T) {
	repo := NewMemory()
	h := NewHandler(repo)
	b, err := repo.CreateBoard(context.Background(), "Plan", "user_a")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Get(rec, request(http.MethodGet, "/", "", &auth.User{ID: "user_a"}, map[string]string{"boardId": "nope"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, request(http.MethodDelete, "/", "", &auth.User{ID: "user_b"}, map[string]string{"boardId": b.ID}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, request(http.MethodDelete, "/", "", &auth.User{ID: "user_a"}, map[string]string{"boardId": b.ID}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, request(http.MethodGet, "/", "", &auth.User{ID: "user_a"}, map[string]string{"boardId": b.ID}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
