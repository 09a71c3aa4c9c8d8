package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendance-api/internal/models"
	appErrors "github.com/attendly/attendance-api/pkg/errors"
)

type tokenValidatorStub struct {
	claims *models.TokenClaims
	err    error
	calls  int
}

func (s *tokenValidatorStub) ValidateToken(token string) (*models.TokenClaims, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newJWTRouter(validatorStub *tokenValidatorStub) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	r := gin.New()
	r.GET("/protected", JWT(validatorStub), func(c *gin.Context) {
		reached = true
		claims := c.MustGet(ContextUserKey).(*models.TokenClaims)
		c.JSON(http.StatusOK, gin.H{"username": claims.PreferredUsername})
	})
	return r, &reached
}

func TestJWTMissingHeader(t *testing.T) {
	validatorStub := &tokenValidatorStub{}
	r, reached := newJWTRouter(validatorStub)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
	assert.False(t, *reached)
	assert.Equal(t, 0, validatorStub.calls)
}

func TestJWTMalformedHeader(t *testing.T) {
	for _, header := range []string{"Basic abc", "Bearer", "Bearer   ", "token-without-scheme"} {
		validatorStub := &tokenValidatorStub{}
		r, reached := newJWTRouter(validatorStub)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.False(t, *reached)
		assert.Equal(t, 0, validatorStub.calls)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	validatorStub := &tokenValidatorStub{err: appErrors.Clone(appErrors.ErrInvalidToken, "invalid token")}
	r, reached := newJWTRouter(validatorStub)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, *reached)
	assert.Equal(t, 1, validatorStub.calls)
}

func TestJWTValidToken(t *testing.T) {
	validatorStub := &tokenValidatorStub{claims: &models.TokenClaims{PreferredUsername: "student1"}}
	r, reached := newJWTRouter(validatorStub)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *reached)
	assert.Contains(t, w.Body.String(), "student1")
}

func TestJWTBearerCaseInsensitive(t *testing.T) {
	validatorStub := &tokenValidatorStub{claims: &models.TokenClaims{PreferredUsername: "student1"}}
	r, _ := newJWTRouter(validatorStub)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer good-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
