package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerStub struct {
	err error
}

func (s pingerStub) Ping(ctx context.Context) error {
	return s.err
}

func healthResponse(t *testing.T, h *HealthHandler) (int, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	c.Request = req

	h.Health(c)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthConnected(t *testing.T) {
	code, body := healthResponse(t, NewHealthHandler(pingerStub{}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
}

func TestHealthDegradesWithoutError(t *testing.T) {
	code, body := healthResponse(t, NewHealthHandler(pingerStub{err: errors.New("connection refused")}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "disconnected", body["database"])
}

func TestHealthNilStore(t *testing.T) {
	code, body := healthResponse(t, NewHealthHandler(nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unhealthy", body["status"])
}
