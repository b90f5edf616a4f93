package call

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/errors"
	"github.com/lucasmd12/0issues/pkg/push"
)

// MockCallStore is a mock implementation of CallStore
type MockCallStore struct {
	mock.Mock
}

func (m *MockCallStore) Create(ctx context.Context, call *domain.Call) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallStore) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallStore) Transition(ctx context.Context, callID uuid.UUID, expected, next domain.CallStatus, at time.Time) (*domain.Call, error) {
	args := m.Called(ctx, callID, expected, next, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallStore) HistoryFor(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

func (m *MockCallStore) OpenCallFor(ctx context.Context, userID uuid.UUID) (*domain.Call, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Call), args.Error(1)
}

func (m *MockCallStore) StalePending(ctx context.Context, cutoff time.Time) ([]*domain.Call, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Call), args.Error(1)
}

// MockUserResolver is a mock implementation of UserResolver
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Notify(userID uuid.UUID, event string, payload any) error {
	args := m.Called(userID, event, payload)
	return args.Error(0)
}

// MockPushSender is a mock implementation of PushSender
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendToUser(ctx context.Context, userID uuid.UUID, notification *push.Notification) (*push.SendResult, error) {
	args := m.Called(ctx, userID, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.SendResult), args.Error(1)
}

func newTestService(store *MockCallStore, users *MockUserResolver, dispatcher *MockDispatcher) *Service {
	return NewService(store, users, dispatcher, nil, nil)
}

// TestInitiate tests creating a call and ringing an online receiver
func TestInitiate(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callerID := uuid.New()
	receiverID := uuid.New()

	mockUsers.On("GetByID", mock.Anything, callerID).Return(&domain.User{UserID: callerID, Username: "alice"}, nil)
	mockUsers.On("GetByID", mock.Anything, receiverID).Return(&domain.User{UserID: receiverID, Username: "bob"}, nil)
	mockStore.On("OpenCallFor", mock.Anything, receiverID).Return(nil, nil)
	mockStore.On("Create", mock.Anything, mock.AnythingOfType("*domain.Call")).Return(nil)
	mockDispatcher.On("Notify", receiverID, EventIncomingCall, mock.Anything).Return(nil)

	call, err := service.Initiate(context.Background(), callerID, receiverID)

	assert.NoError(t, err)
	assert.NotNil(t, call)
	assert.Equal(t, domain.CallStatusPending, call.Status)
	assert.Equal(t, callerID, call.CallerID)
	assert.Equal(t, receiverID, call.ReceiverID)

	mockStore.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

// TestInitiate_SelfCall tests calling yourself
func TestInitiate_SelfCall(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	userID := uuid.New()

	_, err := service.Initiate(context.Background(), userID, userID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	mockStore.AssertNotCalled(t, "Create")
}

// TestInitiate_UnknownReceiver tests calling a nonexistent user
func TestInitiate_UnknownReceiver(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callerID := uuid.New()
	receiverID := uuid.New()

	mockUsers.On("GetByID", mock.Anything, callerID).Return(&domain.User{UserID: callerID, Username: "alice"}, nil)
	mockUsers.On("GetByID", mock.Anything, receiverID).Return(nil, errors.UserNotFoundError())

	_, err := service.Initiate(context.Background(), callerID, receiverID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUserNotFound))
	mockStore.AssertNotCalled(t, "Create")
}

// TestInitiate_ReceiverBusy tests calling a user with an open call
func TestInitiate_ReceiverBusy(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callerID := uuid.New()
	receiverID := uuid.New()

	mockUsers.On("GetByID", mock.Anything, callerID).Return(&domain.User{UserID: callerID, Username: "alice"}, nil)
	mockUsers.On("GetByID", mock.Anything, receiverID).Return(&domain.User{UserID: receiverID, Username: "bob"}, nil)
	mockStore.On("OpenCallFor", mock.Anything, receiverID).Return(&domain.Call{
		CallID:     uuid.New(),
		ReceiverID: receiverID,
		Status:     domain.CallStatusActive,
	}, nil)

	_, err := service.Initiate(context.Background(), callerID, receiverID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReceiverBusy))
	mockStore.AssertNotCalled(t, "Create")
}

// TestInitiate_OfflineReceiverFallsBackToPush tests the push fallback
func TestInitiate_OfflineReceiverFallsBackToPush(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	mockPush := new(MockPushSender)
	service := NewService(mockStore, mockUsers, mockDispatcher, mockPush, nil)

	callerID := uuid.New()
	receiverID := uuid.New()

	mockUsers.On("GetByID", mock.Anything, callerID).Return(&domain.User{UserID: callerID, Username: "alice"}, nil)
	mockUsers.On("GetByID", mock.Anything, receiverID).Return(&domain.User{UserID: receiverID, Username: "bob"}, nil)
	mockStore.On("OpenCallFor", mock.Anything, receiverID).Return(nil, nil)
	mockStore.On("Create", mock.Anything, mock.AnythingOfType("*domain.Call")).Return(nil)
	mockDispatcher.On("Notify", receiverID, EventIncomingCall, mock.Anything).Return(errors.TargetUnreachableError("User has no active connection"))
	mockPush.On("SendToUser", mock.Anything, receiverID, mock.AnythingOfType("*push.Notification")).
		Return(&push.SendResult{SuccessCount: 1}, nil)

	call, err := service.Initiate(context.Background(), callerID, receiverID)

	assert.NoError(t, err)
	assert.NotNil(t, call)
	mockPush.AssertExpectations(t)
}

// TestAccept tests the receiver accepting a pending call
func TestAccept(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	pending := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
	}
	now := time.Now()
	active := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusActive,
		AcceptedAt: &now,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(pending, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusActive, mock.AnythingOfType("time.Time")).
		Return(active, nil)
	mockDispatcher.On("Notify", callerID, EventCallAccepted, mock.Anything).Return(nil)

	updated, err := service.Accept(context.Background(), callID, receiverID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusActive, updated.Status)
	assert.NotNil(t, updated.AcceptedAt)

	mockStore.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

// TestAccept_NotReceiver tests the caller trying to accept their own call
func TestAccept_NotReceiver(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	// Already ended; the actor check still fires first
	mockStore.On("GetByID", mock.Anything, callID).Return(&domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusEnded,
	}, nil)

	_, err := service.Accept(context.Background(), callID, callerID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	mockStore.AssertNotCalled(t, "Transition")
}

// TestAccept_AlreadyRejected tests accepting a call that was already rejected
func TestAccept_AlreadyRejected(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	receiverID := uuid.New()

	rejected := &domain.Call{
		CallID:     callID,
		CallerID:   uuid.New(),
		ReceiverID: receiverID,
		Status:     domain.CallStatusRejected,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(rejected, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusActive, mock.AnythingOfType("time.Time")).
		Return(rejected, errors.InvalidTransitionError(string(domain.CallStatusRejected)))

	_, err := service.Accept(context.Background(), callID, receiverID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
	mockDispatcher.AssertNotCalled(t, "Notify")
}

// TestReject tests the receiver declining a pending call
func TestReject(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	pending := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
	}
	rejected := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusRejected,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(pending, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusRejected, mock.AnythingOfType("time.Time")).
		Return(rejected, nil)
	mockDispatcher.On("Notify", callerID, EventCallRejected, mock.Anything).Return(nil)

	updated, err := service.Reject(context.Background(), callID, receiverID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusRejected, updated.Status)
	mockStore.AssertExpectations(t)
}

// TestEnd_ActiveCall tests a participant hanging up an active call
func TestEnd_ActiveCall(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	active := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusActive,
	}
	now := time.Now()
	ended := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusEnded,
		EndedAt:    &now,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(active, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusActive, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(ended, nil)
	mockDispatcher.On("Notify", receiverID, EventCallEnded, mock.Anything).Return(nil)

	updated, err := service.End(context.Background(), callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, updated.Status)
	assert.NotNil(t, updated.EndedAt)
	mockStore.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

// TestEnd_PendingCancel tests the caller cancelling before an answer
func TestEnd_PendingCancel(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	pending := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
	}
	ended := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusEnded,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(pending, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(ended, nil)
	mockDispatcher.On("Notify", receiverID, EventCallEnded, mock.Anything).Return(nil)

	updated, err := service.End(context.Background(), callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, updated.Status)
	mockStore.AssertExpectations(t)
}

// TestEnd_AlreadyEnded tests that ending twice succeeds without a new write
func TestEnd_AlreadyEnded(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()

	ended := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: uuid.New(),
		Status:     domain.CallStatusEnded,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(ended, nil)

	updated, err := service.End(context.Background(), callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, updated.Status)
	mockStore.AssertNotCalled(t, "Transition")
	mockDispatcher.AssertNotCalled(t, "Notify")
}

// TestEnd_RejectedCall tests that a rejected call cannot be ended
func TestEnd_RejectedCall(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	receiverID := uuid.New()

	rejected := &domain.Call{
		CallID:     callID,
		CallerID:   uuid.New(),
		ReceiverID: receiverID,
		Status:     domain.CallStatusRejected,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(rejected, nil)

	_, err := service.End(context.Background(), callID, receiverID)

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
	mockStore.AssertNotCalled(t, "Transition")
}

// TestEnd_NotParticipant tests an outsider trying to end a call
func TestEnd_NotParticipant(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()

	active := &domain.Call{
		CallID:     callID,
		CallerID:   uuid.New(),
		ReceiverID: uuid.New(),
		Status:     domain.CallStatusActive,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(active, nil)

	_, err := service.End(context.Background(), callID, uuid.New())

	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotParticipant))
	mockStore.AssertNotCalled(t, "Transition")
}

// TestEnd_RacesWithAccept tests the retry after a concurrent accept
func TestEnd_RacesWithAccept(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	pending := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
	}
	active := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusActive,
	}
	ended := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusEnded,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(pending, nil)
	// First attempt loses to a concurrent accept, second succeeds
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(active, errors.InvalidTransitionError(string(domain.CallStatusActive)))
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusActive, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(ended, nil)
	mockDispatcher.On("Notify", receiverID, EventCallEnded, mock.Anything).Return(nil)

	updated, err := service.End(context.Background(), callID, callerID)

	assert.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, updated.Status)
	mockStore.AssertExpectations(t)
}

// TestGet_ParticipantOnly tests that only participants can read a call
func TestGet_ParticipantOnly(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()

	call := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: uuid.New(),
		Status:     domain.CallStatusActive,
	}

	mockStore.On("GetByID", mock.Anything, callID).Return(call, nil)

	got, err := service.Get(context.Background(), callID, callerID)
	assert.NoError(t, err)
	assert.Equal(t, callID, got.CallID)

	_, err = service.Get(context.Background(), callID, uuid.New())
	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotParticipant))
}

// TestHistory_ClampsPaging tests limit and offset normalization
func TestHistory_ClampsPaging(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	userID := uuid.New()
	calls := []*domain.Call{
		{CallID: uuid.New(), CallerID: userID, Status: domain.CallStatusEnded},
	}

	mockStore.On("HistoryFor", mock.Anything, userID, 20, 0).Return(calls, nil)
	mockStore.On("HistoryFor", mock.Anything, userID, 100, 0).Return(calls, nil)

	result, err := service.History(context.Background(), userID, 0, -5)
	assert.NoError(t, err)
	assert.Len(t, result, 1)

	result, err = service.History(context.Background(), userID, 500, 0)
	assert.NoError(t, err)
	assert.Len(t, result, 1)

	mockStore.AssertExpectations(t)
}

// TestSweepStalePending tests the janitor expiring an unanswered call
func TestSweepStalePending(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	callerID := uuid.New()
	receiverID := uuid.New()

	stale := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
		StartedAt:  time.Now().Add(-2 * time.Minute),
	}
	ended := &domain.Call{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusEnded,
	}

	mockStore.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*domain.Call{stale}, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(ended, nil)
	mockDispatcher.On("Notify", callerID, EventCallEnded, mock.Anything).Return(nil)
	mockDispatcher.On("Notify", receiverID, EventCallEnded, mock.Anything).Return(nil)

	service.sweepStalePending(context.Background())

	mockStore.AssertExpectations(t)
	mockDispatcher.AssertExpectations(t)
}

// TestSweepStalePending_LostRace tests the janitor losing to a concurrent accept
func TestSweepStalePending_LostRace(t *testing.T) {
	mockStore := new(MockCallStore)
	mockUsers := new(MockUserResolver)
	mockDispatcher := new(MockDispatcher)
	service := newTestService(mockStore, mockUsers, mockDispatcher)

	callID := uuid.New()
	stale := &domain.Call{
		CallID:     callID,
		CallerID:   uuid.New(),
		ReceiverID: uuid.New(),
		Status:     domain.CallStatusPending,
		StartedAt:  time.Now().Add(-2 * time.Minute),
	}

	mockStore.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*domain.Call{stale}, nil)
	mockStore.On("Transition", mock.Anything, callID, domain.CallStatusPending, domain.CallStatusEnded, mock.AnythingOfType("time.Time")).
		Return(stale, errors.InvalidTransitionError(string(domain.CallStatusActive)))

	service.sweepStalePending(context.Background())

	mockDispatcher.AssertNotCalled(t, "Notify")
}
