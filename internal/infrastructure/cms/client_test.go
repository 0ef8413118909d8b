package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"devil-pov-api/internal/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		CMS: config.CMSConfig{
			BaseURL:   baseURL,
			APIKey:    "cms-key",
			SiteID:    "site-1",
			AccountID: "account-1",
			Timeout:   5 * time.Second,
		},
	}
}

func TestQuery_ExtractsDataItems(t *testing.T) {
	var got queryRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/items/query", r.URL.Path)
		require.Equal(t, "cms-key", r.Header.Get("Authorization"))
		require.Equal(t, "site-1", r.Header.Get("wix-site-id"))
		require.Equal(t, "account-1", r.Header.Get("wix-account-id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"dataItems": []map[string]any{
				{"id": "1", "data": map[string]any{"title": "Chapter One"}},
				{"id": "2", "data": map[string]any{"title": "Chapter Two"}},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL))
	items := c.Query(context.Background(), "BackupChapters", map[string]any{"tags": "@Vex"}, 3)

	require.Len(t, items, 2)
	require.Equal(t, "Chapter One", items[0]["title"])
	require.Equal(t, "BackupChapters", got.DataCollectionID)
	require.Equal(t, 3, got.Query.Paging.Limit)
	require.Equal(t, "@Vex", got.Query.Filter["tags"])
}

func TestQuery_NonSuccessStatusYieldsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL))
	items := c.Query(context.Background(), "Characters", map[string]any{"tags": "@Vex"}, 1)
	require.Empty(t, items)
}

func TestQuery_TransportErrorYieldsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // 立即关闭制造连接失败

	c := NewClient(testConfig(ts.URL))
	items := c.Query(context.Background(), "Characters", map[string]any{"tags": "@Vex"}, 1)
	require.Empty(t, items)
}

func TestQuery_MalformedResponseYieldsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL))
	items := c.Query(context.Background(), "Catalyst", map[string]any{"title": map[string]any{"$contains": "storm"}}, 1)
	require.Empty(t, items)
}
