package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func writeToken(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "token.json")
	data, err := json.Marshal(&oauth2.Token{AccessToken: "test-token"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestAuthorizedRequiresToken(t *testing.T) {
	cal := NewGoogleCalendar("id", "secret", "http://localhost", "primary", filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, cal.Authorized())

	cal = NewGoogleCalendar("id", "secret", "http://localhost", "primary", writeToken(t, t.TempDir()))
	assert.True(t, cal.Authorized())
}

func TestUnauthorizedCallsFail(t *testing.T) {
	cal := NewGoogleCalendar("id", "secret", "http://localhost", "primary", filepath.Join(t.TempDir(), "missing.json"))
	_, err := cal.ListUpcoming(context.Background())
	assert.Error(t, err)
}

func TestListUpcoming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("timeMin"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id":      "e1",
					"summary": "Game night",
					"start":   map[string]string{"dateTime": "2026-09-01T18:00:00Z"},
					"end":     map[string]string{"dateTime": "2026-09-01T19:00:00Z"},
				},
			},
		})
	}))
	defer server.Close()

	cal := NewGoogleCalendar("id", "secret", "http://localhost", "primary", writeToken(t, t.TempDir()))
	cal.baseURL = server.URL

	events, err := cal.ListUpcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, "Game night", events[0].Title)
	assert.Equal(t, time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC), events[0].Start)
}

func TestCreateUpdateDelete(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody googleEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	cal := NewGoogleCalendar("id", "secret", "http://localhost", "primary", writeToken(t, t.TempDir()))
	cal.baseURL = server.URL

	event := Event{
		ID:    "e1",
		Title: "Meeting",
		Start: time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
	}

	require.NoError(t, cal.Create(context.Background(), event))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/calendars/primary/events", gotPath)
	assert.Equal(t, "Meeting", gotBody.Summary)

	require.NoError(t, cal.Update(context.Background(), event))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/calendars/primary/events/e1", gotPath)

	require.NoError(t, cal.Delete(context.Background(), "e1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/calendars/primary/events/e1", gotPath)
}

func TestAPIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "forbidden"}`, http.StatusForbidden)
	}))
	defer server.Close()

	cal := NewGoogleCalendar("id", "secret", "http://localhost", "primary", writeToken(t, t.TempDir()))
	cal.baseURL = server.URL

	err := cal.Delete(context.Background(), "e1")
	assert.Error(t, err)
}
