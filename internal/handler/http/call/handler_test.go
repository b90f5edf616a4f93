package call

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/internal/repository/memory"
	callService "github.com/lucasmd12/0issues/internal/service/call"
)

// silentDispatcher drops every event; delivery is best-effort anyway
type silentDispatcher struct{}

func (silentDispatcher) Notify(userID uuid.UUID, event string, payload any) error {
	return nil
}

// testAuth stands in for the JWT middleware, taking the acting user from a
// request header
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader("X-Test-User"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

type testEnv struct {
	router *gin.Engine
	store  *memory.CallRepository
	users  *memory.UserDirectory
	caller uuid.UUID
	callee uuid.UUID
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewCallRepository()
	users := memory.NewUserDirectory()

	callerID := uuid.New()
	calleeID := uuid.New()
	users.Record(&domain.User{UserID: callerID, Username: "alice"})
	users.Record(&domain.User{UserID: calleeID, Username: "bob"})

	svc := callService.NewService(store, users, silentDispatcher{}, nil, nil)
	handler := NewHandler(svc)

	router := gin.New()
	group := router.Group("/v1/calls", testAuth())
	{
		group.POST("/initiate", handler.InitiateCall)
		group.POST("/:id/accept", handler.AcceptCall)
		group.POST("/:id/reject", handler.RejectCall)
		group.POST("/:id/end", handler.EndCall)
		group.GET("/history", handler.GetCallHistory)
		group.GET("/:id", handler.GetCall)
	}

	return &testEnv{
		router: router,
		store:  store,
		users:  users,
		caller: callerID,
		callee: calleeID,
	}
}

func (e *testEnv) do(t *testing.T, userID uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID.String())

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) initiate(t *testing.T, callerID, receiverID uuid.UUID) uuid.UUID {
	t.Helper()

	call := &domain.Call{
		CallID:     uuid.New(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
		StartedAt:  time.Now(),
	}
	require.NoError(t, e.store.Create(context.Background(), call))
	return call.CallID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestInitiateCall_Created(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, env.caller, http.MethodPost, "/v1/calls/initiate", gin.H{
		"receiver_id": env.callee.String(),
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, env.caller.String(), data["caller_id"])
}

func TestInitiateCall_InvalidReceiver(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, env.caller, http.MethodPost, "/v1/calls/initiate", gin.H{
		"receiver_id": "not-a-uuid",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateCall_UnknownReceiver(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, env.caller, http.MethodPost, "/v1/calls/initiate", gin.H{
		"receiver_id": uuid.New().String(),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)

	errDetail := decodeBody(t, w)["error"].(map[string]any)
	assert.Equal(t, "USER_NOT_FOUND", errDetail["code"])
}

func TestInitiateCall_BusyReceiverConflict(t *testing.T) {
	env := setupEnv(t)
	env.initiate(t, env.callee, env.caller)

	w := env.do(t, env.caller, http.MethodPost, "/v1/calls/initiate", gin.H{
		"receiver_id": env.callee.String(),
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	errDetail := decodeBody(t, w)["error"].(map[string]any)
	assert.Equal(t, "RECEIVER_BUSY", errDetail["code"])
}

func TestAcceptCall_ByNonReceiverForbidden(t *testing.T) {
	env := setupEnv(t)
	callID := env.initiate(t, env.caller, env.callee)

	w := env.do(t, env.caller, http.MethodPost, fmt.Sprintf("/v1/calls/%s/accept", callID), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAcceptCall_OK(t *testing.T) {
	env := setupEnv(t)
	callID := env.initiate(t, env.caller, env.callee)

	w := env.do(t, env.callee, http.MethodPost, fmt.Sprintf("/v1/calls/%s/accept", callID), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])
	assert.NotNil(t, data["accepted_at"])
}

func TestRejectCall_AfterAcceptConflict(t *testing.T) {
	env := setupEnv(t)
	callID := env.initiate(t, env.caller, env.callee)

	w := env.do(t, env.callee, http.MethodPost, fmt.Sprintf("/v1/calls/%s/accept", callID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, env.callee, http.MethodPost, fmt.Sprintf("/v1/calls/%s/reject", callID), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	errDetail := decodeBody(t, w)["error"].(map[string]any)
	assert.Equal(t, "INVALID_CALL_TRANSITION", errDetail["code"])
}

func TestEndCall_IdempotentOnEnded(t *testing.T) {
	env := setupEnv(t)
	callID := env.initiate(t, env.caller, env.callee)

	w := env.do(t, env.caller, http.MethodPost, fmt.Sprintf("/v1/calls/%s/end", callID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second hangup is a benign duplicate
	w = env.do(t, env.callee, http.MethodPost, fmt.Sprintf("/v1/calls/%s/end", callID), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "ended", data["status"])
}

func TestGetCall_NotFound(t *testing.T) {
	env := setupEnv(t)

	w := env.do(t, env.caller, http.MethodGet, fmt.Sprintf("/v1/calls/%s", uuid.New()), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCall_OutsiderForbidden(t *testing.T) {
	env := setupEnv(t)
	callID := env.initiate(t, env.caller, env.callee)

	outsider := uuid.New()
	env.users.Record(&domain.User{UserID: outsider, Username: "mallory"})

	w := env.do(t, outsider, http.MethodGet, fmt.Sprintf("/v1/calls/%s", callID), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetCallHistory(t *testing.T) {
	env := setupEnv(t)
	env.initiate(t, env.caller, env.callee)
	env.initiate(t, env.callee, env.caller)

	w := env.do(t, env.caller, http.MethodGet, "/v1/calls/history", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	calls := data["calls"].([]any)
	assert.Len(t, calls, 2)
}

func TestUnauthenticatedRejected(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/calls/history", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
