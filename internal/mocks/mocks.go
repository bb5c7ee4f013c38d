package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
	"messenger-service/internal/storage"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Upsert(ctx context.Context, externalID, name, email, avatarURL string) (models.User, error) {
	args := m.Called(ctx, externalID, name, email, avatarURL)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	args := m.Called(ctx, externalID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListOthers(ctx context.Context, userID int) ([]models.User, error) {
	args := m.Called(ctx, userID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) GetOrCreateDirect(ctx context.Context, userID, otherID int) (models.Conversation, error) {
	args := m.Called(ctx, userID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) GetForUser(ctx context.Context, conversationID, userID int) (*models.ConversationSummary, error) {
	args := m.Called(ctx, conversationID, userID)
	var summary *models.ConversationSummary
	if val := args.Get(0); val != nil {
		summary = val.(*models.ConversationSummary)
	}
	return summary, args.Error(1)
}

func (m *ConversationRepositoryMock) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	args := m.Called(ctx, conversationID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, userID int) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID int, content string, attachment *models.Attachment) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content, attachment)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Toggle(ctx context.Context, messageID, userID int, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionRepositoryMock) ListForMessage(ctx context.Context, messageID, callerID int) ([]models.ReactionSummary, error) {
	args := m.Called(ctx, messageID, callerID)
	var list []models.ReactionSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ReactionSummary)
	}
	return list, args.Error(1)
}

func (m *ReactionRepositoryMock) ListForConversation(ctx context.Context, conversationID, callerID int) (map[int][]models.ReactionSummary, error) {
	args := m.Called(ctx, conversationID, callerID)
	var byMessage map[int][]models.ReactionSummary
	if val := args.Get(0); val != nil {
		byMessage = val.(map[int][]models.ReactionSummary)
	}
	return byMessage, args.Error(1)
}

type TrackerMock struct {
	mock.Mock
}

func (m *TrackerMock) SetOnline(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *TrackerMock) SetOffline(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *TrackerMock) Heartbeat(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *TrackerMock) Snapshot(ctx context.Context) (map[int]bool, error) {
	args := m.Called(ctx)
	var snapshot map[int]bool
	if val := args.Get(0); val != nil {
		snapshot = val.(map[int]bool)
	}
	return snapshot, args.Error(1)
}

type TypingTrackerMock struct {
	mock.Mock
}

func (m *TypingTrackerMock) SetTyping(ctx context.Context, conversationID, userID int) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *TypingTrackerMock) ClearTyping(ctx context.Context, conversationID, userID int) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *TypingTrackerMock) TypingUserIDs(ctx context.Context, conversationID, excludeUserID int) ([]int, error) {
	args := m.Called(ctx, conversationID, excludeUserID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) PresignUpload(ctx context.Context, handle string) (string, error) {
	args := m.Called(ctx, handle)
	return args.String(0), args.Error(1)
}

func (m *ObjectStoreMock) PresignDownload(ctx context.Context, handle string) (string, error) {
	args := m.Called(ctx, handle)
	return args.String(0), args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
var _ presence.Tracker = (*TrackerMock)(nil)
var _ presence.TypingTracker = (*TypingTrackerMock)(nil)
var _ storage.ObjectStore = (*ObjectStoreMock)(nil)
