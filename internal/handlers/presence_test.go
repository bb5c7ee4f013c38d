package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
)

func setupPresenceRouter(handler *PresenceHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	r.POST("/presence/online", handler.SetOnline)
	r.POST("/presence/offline", handler.SetOffline)
	r.POST("/presence/heartbeat", handler.Heartbeat)
	r.GET("/presence", handler.GetMap)
	return r
}

func TestPresenceSignals(t *testing.T) {
	tracker := new(mocks.TrackerMock)
	handler := NewPresenceHandler(tracker)
	router := setupPresenceRouter(handler, 1)

	tracker.On("SetOnline", mock.Anything, 1).Return(nil).Once()
	tracker.On("Heartbeat", mock.Anything, 1).Return(nil).Once()
	tracker.On("SetOffline", mock.Anything, 1).Return(nil).Once()

	for _, path := range []string{"/presence/online", "/presence/heartbeat", "/presence/offline"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, path)
	}
	tracker.AssertExpectations(t)
}

func TestPresenceSnapshot(t *testing.T) {
	tracker := new(mocks.TrackerMock)
	handler := NewPresenceHandler(tracker)
	router := setupPresenceRouter(handler, 0)

	tracker.On("Snapshot", mock.Anything).Return(map[int]bool{1: true, 2: false}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/presence", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Presence map[int]bool `json:"presence"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Presence[1])
	assert.False(t, resp.Presence[2])
	tracker.AssertExpectations(t)
}

func TestPresenceSnapshotError(t *testing.T) {
	tracker := new(mocks.TrackerMock)
	handler := NewPresenceHandler(tracker)
	router := setupPresenceRouter(handler, 0)

	tracker.On("Snapshot", mock.Anything).Return((map[int]bool)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/presence", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	tracker.AssertExpectations(t)
}
