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

	"messenger-service/internal/middleware"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type messageHandlerMocks struct {
	messageRepo *mocks.MessageRepositoryMock
	convRepo    *mocks.ConversationRepositoryMock
	userRepo    *mocks.UserRepositoryMock
	typing      *mocks.TypingTrackerMock
	store       *mocks.ObjectStoreMock
}

func newMessageHandler() (*MessageHandler, messageHandlerMocks) {
	m := messageHandlerMocks{
		messageRepo: new(mocks.MessageRepositoryMock),
		convRepo:    new(mocks.ConversationRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
		typing:      new(mocks.TypingTrackerMock),
		store:       new(mocks.ObjectStoreMock),
	}
	handler := NewMessageHandler(m.messageRepo, m.convRepo, m.userRepo, m.typing, m.store, newTestHub(), nil)
	return handler, m
}

func setupMessageRouter(handler *MessageHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	})
	r.POST("/conversations/:conversation_id/messages", handler.Send)
	r.GET("/conversations/:conversation_id/messages", handler.List)
	r.DELETE("/messages/:message_id", handler.Delete)
	return r
}

func TestSendMessageSuccess(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.convRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messageRepo.On("Create", mock.Anything, 5, 1, "hello", (*models.Attachment)(nil)).
		Return(models.Message{ID: 42, ConversationID: 5, SenderID: 1, Content: "hello"}, nil).Once()
	m.typing.On("ClearTyping", mock.Anything, 5, 1).Return(nil).Once()
	m.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Name: "me"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", bytes.NewBufferString(`{"content":"  hello  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 42, resp.ID)
	assert.Equal(t, "hello", resp.Content)
	m.messageRepo.AssertExpectations(t)
	m.convRepo.AssertExpectations(t)
	m.typing.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	attachment := &models.Attachment{Handle: "h-1", MimeType: "image/png", Filename: "cat.png"}
	m.convRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messageRepo.On("Create", mock.Anything, 5, 1, "", attachment).
		Return(models.Message{ID: 43, ConversationID: 5, SenderID: 1}, nil).Once()
	m.typing.On("ClearTyping", mock.Anything, 5, 1).Return(nil).Once()
	m.userRepo.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1}, nil).Once()

	body := bytes.NewBufferString(`{"attachment":{"handle":"h-1","mime_type":"image/png","filename":"cat.png"}}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	m.messageRepo.AssertExpectations(t)
}

func TestSendMessageEmpty(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	m.messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageNotMember(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.convRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.convRepo.AssertExpectations(t)
	m.messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesResolvesSenders(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	attachmentID := "h-9"
	m.convRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messageRepo.On("ListForConversation", mock.Anything, 5).Return([]models.Message{
		{ID: 1, ConversationID: 5, SenderID: 1, Content: "mine"},
		{ID: 2, ConversationID: 5, SenderID: 2, Content: "pic", AttachmentID: &attachmentID},
	}, nil).Once()
	m.userRepo.On("BulkUsers", mock.Anything, []int{1, 2}).
		Return([]models.User{{ID: 1, Name: "me"}, {ID: 2, Name: "bob"}}, nil).Once()
	m.store.On("PresignDownload", mock.Anything, "h-9").Return("https://files/h-9", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.MessageView `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.True(t, resp.Messages[0].IsOwn)
	assert.False(t, resp.Messages[1].IsOwn)
	assert.Equal(t, "bob", resp.Messages[1].Sender.Name)
	require.NotNil(t, resp.Messages[1].AttachmentURL)
	assert.Equal(t, "https://files/h-9", *resp.Messages[1].AttachmentURL)
	m.messageRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
	m.store.AssertExpectations(t)
}

func TestListMessagesNotMember(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.convRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.MessageView `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Messages)
	m.messageRepo.AssertNotCalled(t, "ListForConversation", mock.Anything, mock.Anything)
}

func TestListMessagesAnonymous(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 0)

	req := httptest.NewRequest(http.MethodGet, "/conversations/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.convRepo.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessageSuccess(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.messageRepo.On("Get", mock.Anything, 42).
		Return(models.Message{ID: 42, ConversationID: 5, SenderID: 1}, nil).Once()
	m.messageRepo.On("SoftDelete", mock.Anything, 42).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	m.messageRepo.AssertExpectations(t)
}

func TestDeleteMessageNotSender(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.messageRepo.On("Get", mock.Anything, 42).
		Return(models.Message{ID: 42, ConversationID: 5, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	m.messageRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDeleteMessageNotFound(t *testing.T) {
	handler, m := newMessageHandler()
	router := setupMessageRouter(handler, 1)

	m.messageRepo.On("Get", mock.Anything, 42).
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	m.messageRepo.AssertExpectations(t)
}
