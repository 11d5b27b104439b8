package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	exec := NewExecutor(server.URL, server.Client(), NewStaticCredentials("key"),
		WithSleep((&recordingSleep{}).Sleep))
	return NewClient(exec)
}

func TestClient_ClaimStatusShapes(t *testing.T) {
	var gotQuery []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/servers/players/Alex/claim-status", r.URL.Path)
		gotQuery = append(gotQuery, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"claimed":false}`))
	})

	ctx := context.Background()
	_, err := client.ClaimStatus(ctx, "Alex", -1, "")
	require.NoError(t, err)
	_, err = client.ClaimStatus(ctx, "Alex", 10000, "2026-10-17")
	require.NoError(t, err)

	require.Len(t, gotQuery, 2)
	assert.Equal(t, "", gotQuery[0])
	assert.Equal(t, "day=2026-10-17&min_steps=10000", gotQuery[1])
}

func TestClient_ClaimRewardIsPostAndNotRetried(t *testing.T) {
	hits := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "10000", r.URL.Query().Get("min_steps"))
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ClaimReward(context.Background(), "Alex", 10000, "")
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestClient_ListPlayers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/servers/players/list", r.URL.Path)
		assert.Equal(t, "45", r.URL.Query().Get("limit"))
		assert.Equal(t, "90", r.URL.Query().Get("offset"))
		assert.Equal(t, "ale x", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"total_players":1,"players":[{"minecraft_username":"Alex"}]}`))
	})

	page, err := client.ListPlayers(context.Background(), 45, 90, "ale x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alex"}, page.Names)
}

func TestClient_BanSendsReason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/servers/players/Griefer/ban", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "griefing", body["reason"])
		_, _ = w.Write([]byte(`{"banned":true}`))
	})

	_, err := client.Ban(context.Background(), "Griefer", "griefing")
	require.NoError(t, err)
}

func TestClient_HealthWithoutCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(APIKeyHeader))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := NewClient(NewExecutor(server.URL, server.Client(), NewStaticCredentials("")))
	body, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
}

func TestClient_PathEscapesPlayer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/servers/players/a%2Fb/yesterday-steps", r.URL.RawPath)
		_, _ = w.Write([]byte(`{"steps_yesterday":5}`))
	})

	steps, err := client.YesterdaySteps(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, int64(5), steps)
}
