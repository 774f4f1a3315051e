package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveOperation(t *testing.T) {
	c := New()
	c.ObserveOperation("delete", nil, time.Millisecond)
	c.ObserveOperation("delete", errors.New("boom"), time.Millisecond)
	c.ObserveOperation("delete", nil, time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `whiteboard_operations_total{result="ok",type="delete"} 2`)
	assert.Contains(t, body, `whiteboard_operations_total{result="error",type="delete"} 1`)
	assert.Contains(t, body, `whiteboard_operation_duration_seconds_count{type="delete"} 3`)
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.Rooms.Set(3)
	c.ObserveSnapshot(nil)

	body := scrape(t, c)
	assert.Contains(t, body, "whiteboard_rooms_open 3")
	assert.Contains(t, body, `whiteboard_snapshots_saved_total{result="ok"} 1`)
}
