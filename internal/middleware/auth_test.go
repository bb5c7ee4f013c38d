package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/auth"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

var testSecret = []byte("test-secret")

func signTestToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func setupAuthRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", handler, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt(UserIDKey)})
	})
	return r
}

func TestAuthenticatedMissingToken(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	router := setupAuthRouter(Authenticated(verifier, new(mocks.UserRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedProfileNotOnboarded(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(Authenticated(verifier, userRepo))

	userRepo.On("GetByExternalID", mock.Anything, "sub-1").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "sub-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile_not_found")
	userRepo.AssertExpectations(t)
}

func TestAuthenticatedSuccess(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(Authenticated(verifier, userRepo))

	userRepo.On("GetByExternalID", mock.Anything, "sub-1").
		Return(models.User{ID: 7, ExternalID: "sub-1"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "sub-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":7`)
	userRepo.AssertExpectations(t)
}

func TestOptionalAuthWithoutToken(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	router := setupAuthRouter(OptionalAuth(verifier, new(mocks.UserRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":0`)
}

func TestOptionalAuthBadTokenIsIgnored(t *testing.T) {
	verifier := auth.NewVerifier(testSecret)
	router := setupAuthRouter(OptionalAuth(verifier, new(mocks.UserRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":0`)
}
