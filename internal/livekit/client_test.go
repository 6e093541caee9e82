package livekit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Path  string
	Body  map[string]any
	Grant auth.VideoGrant
}

// fakePlatform answers Twirp calls and verifies bearer tokens.
func fakePlatform(t *testing.T, tokens *auth.Manager, handle func(path string, body map[string]any) (int, any)) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims, err := tokens.Verify(bearer, time.Now())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"unauthenticated","msg":"bad token"}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recordedCall{Path: r.URL.Path, Body: body, Grant: *claims.Video})
		mu.Unlock()

		status, out := handle(r.URL.Path, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func newTokens(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager(config.LiveKitConfig{APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	return m
}

func TestCreateRoom_SendsTwirpRequest(t *testing.T) {
	tokens := newTokens(t)
	srv, calls := fakePlatform(t, tokens, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"sid": "RM_1", "name": body["name"], "creation_time": "1700000000"}
	})

	c, err := NewClient(Config{URL: srv.URL}, tokens)
	require.NoError(t, err)

	room, err := c.CreateRoom(context.Background(), &CreateRoomRequest{Name: "call-1-abc", EmptyTimeout: 300, MaxParticipants: 2, Metadata: `{"caller":"+1"}`})
	require.NoError(t, err)
	assert.Equal(t, "RM_1", room.GetSid())
	assert.Equal(t, "call-1-abc", room.GetName())

	require.Len(t, calls(), 1)
	got := calls()[0]
	assert.Equal(t, "/twirp/livekit.RoomService/CreateRoom", got.Path)
	assert.Equal(t, float64(2), got.Body["max_participants"])
	assert.Equal(t, float64(300), got.Body["empty_timeout"])
	assert.True(t, got.Grant.RoomCreate)
}

func TestCreateDispatch_ScopesGrantToRoom(t *testing.T) {
	tokens := newTokens(t)
	srv, calls := fakePlatform(t, tokens, func(path string, body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"id": "AD_1", "agent_name": body["agent_name"], "room": body["room"]}
	})
	c, err := NewClient(Config{URL: srv.URL}, tokens)
	require.NoError(t, err)

	d, err := c.CreateDispatch(context.Background(), &CreateDispatchRequest{AgentName: "voice-agent", Room: "call-1-abc", Metadata: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "AD_1", d.GetId())
	assert.Equal(t, "voice-agent", d.GetAgentName())

	got := calls()[0]
	assert.Equal(t, "/twirp/livekit.AgentDispatchService/CreateDispatch", got.Path)
	assert.True(t, got.Grant.RoomAdmin)
	assert.Equal(t, "call-1-abc", got.Grant.Room)
}

func TestDeleteAndListRooms(t *testing.T) {
	tokens := newTokens(t)
	srv, calls := fakePlatform(t, tokens, func(path string, body map[string]any) (int, any) {
		if strings.HasSuffix(path, "/ListRooms") {
			return http.StatusOK, map[string]any{"rooms": []map[string]any{{"name": "a"}, {"name": "b"}}}
		}
		return http.StatusOK, map[string]any{}
	})
	c, err := NewClient(Config{URL: srv.URL}, tokens)
	require.NoError(t, err)

	require.NoError(t, c.DeleteRoom(context.Background(), "call-1-abc"))
	n, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recorded := calls()
	require.Len(t, recorded, 2)
	assert.Equal(t, "call-1-abc", recorded[0].Body["room"])
	assert.True(t, recorded[1].Grant.RoomList)
}

func TestTwirpErrorsAreTyped(t *testing.T) {
	tokens := newTokens(t)
	srv, _ := fakePlatform(t, tokens, func(path string, body map[string]any) (int, any) {
		return http.StatusConflict, map[string]any{"code": "already_exists", "msg": "room exists"}
	})
	c, err := NewClient(Config{URL: srv.URL}, tokens)
	require.NoError(t, err)

	_, err = c.CreateRoom(context.Background(), &CreateRoomRequest{Name: "dup"})
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, Answered(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "room exists", apiErr.Msg)
}

func TestNonTwirpErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, newTokens(t))
	require.NoError(t, err)

	err = c.DeleteRoom(context.Background(), "x")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUnavailable, apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestCallHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{URL: srv.URL}, newTokens(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.CreateRoom(ctx, &CreateRoomRequest{Name: "slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, Answered(err))
}

func TestTransportFailureIsNotAnAnswer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{URL: url}, newTokens(t))
	require.NoError(t, err)

	_, err = c.CreateRoom(context.Background(), &CreateRoomRequest{Name: "call-1-abc"})
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
	assert.False(t, Answered(err))
}

func TestHTTPURL(t *testing.T) {
	cases := map[string]string{
		"wss://demo.livekit.cloud": "https://demo.livekit.cloud",
		"ws://localhost:7880/":     "http://localhost:7880",
		"https://api.example.com":  "https://api.example.com",
	}
	for in, want := range cases {
		got, err := HTTPURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := HTTPURL("ftp://x")
	assert.Error(t, err)
}

func TestEmptyTimeoutSeconds(t *testing.T) {
	assert.Equal(t, uint32(300), EmptyTimeoutSeconds(5*time.Minute))
	assert.Equal(t, uint32(1), EmptyTimeoutSeconds(10*time.Millisecond))
	assert.Equal(t, uint32(0), EmptyTimeoutSeconds(0))
	assert.Equal(t, uint32(2), EmptyTimeoutSeconds(1500*time.Millisecond))
	assert.Equal(t, uint32(math.MaxUint32), EmptyTimeoutSeconds(time.Duration(math.MaxInt64)))
	assert.Equal(t, uint32(math.MaxUint32), EmptyTimeoutSeconds((math.MaxUint32+10)*time.Second))
}
