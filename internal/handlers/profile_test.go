package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/auth"
	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
)

func setupProfileRouter(handler *ProfileHandler, ident *auth.Identity, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if ident != nil {
			c.Set(middleware.IdentityKey, *ident)
		}
		if userID != 0 {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	r.POST("/profile", handler.UpsertProfile)
	r.GET("/profile/me", handler.Me)
	r.GET("/users", handler.ListUsers)
	return r
}

func TestUpsertProfileFromClaims(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	ident := auth.Identity{Subject: "sub-1", Name: "Alice", Email: "alice@example.com", AvatarURL: "https://img/a.png"}
	router := setupProfileRouter(handler, &ident, 0)

	userRepo.On("Upsert", mock.Anything, "sub-1", "Alice", "alice@example.com", "https://img/a.png").
		Return(models.User{ID: 1, Name: "Alice", Email: "alice@example.com"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.User.ID)
	userRepo.AssertExpectations(t)
}

func TestUpsertProfileBodyOverridesName(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	ident := auth.Identity{Subject: "sub-1", Name: "Alice", Email: "alice@example.com"}
	router := setupProfileRouter(handler, &ident, 0)

	userRepo.On("Upsert", mock.Anything, "sub-1", "Ally", "alice@example.com", "").
		Return(models.User{ID: 1, Name: "Ally"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/profile", bytes.NewBufferString(`{"name":"  Ally  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestUpsertProfileWithoutIdentity(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	router := setupProfileRouter(handler, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMeSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	router := setupProfileRouter(handler, nil, 1)

	userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Name: "Alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestMeBeforeOnboarding(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	router := setupProfileRouter(handler, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp["user"])
	userRepo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestListUsersExcludesCaller(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewProfileHandler(userRepo, nil)
	router := setupProfileRouter(handler, nil, 1)

	userRepo.On("ListOthers", mock.Anything, 1).Return([]models.User{{ID: 2, Name: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, 2, resp.Users[0].ID)
	userRepo.AssertExpectations(t)
}
