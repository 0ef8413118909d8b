package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"devil-pov-api/internal/config"
	"devil-pov-api/pkg/errors"
)

func testConfig(baseURL string, chain []string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			APIKey:        "sk-test",
			BaseURL:       baseURL,
			FallbackChain: chain,
			AnalysisModel: "analysis-model",
			TagModel:      "tag-model",
			Referer:       "https://devilpov.app",
			AppTitle:      "Devil POV",
			Timeout:       5 * time.Second,
		},
	}
}

// completionServer 按模型名决定响应，记录每个模型被尝试的次数
type completionServer struct {
	t        *testing.T
	attempts map[string]int
	failing  map[string]bool
}

func (s *completionServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))
		s.attempts[req.Model]++

		if s.failing[req.Model] {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "completion from " + req.Model}},
			},
		})
	}
}

func TestChat_FallbackToThirdCandidate(t *testing.T) {
	srv := &completionServer{
		t:        t,
		attempts: map[string]int{},
		failing:  map[string]bool{"model-a": true, "model-b": true},
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a", "model-b", "model-c"}))

	out, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.9, 100)
	require.NoError(t, err)
	require.Equal(t, "completion from model-c", out)

	// 前两个候选各尝试恰好一次，不重试
	require.Equal(t, 1, srv.attempts["model-a"])
	require.Equal(t, 1, srv.attempts["model-b"])
	require.Equal(t, 1, srv.attempts["model-c"])
}

func TestChat_FirstCandidateWinsStopsChain(t *testing.T) {
	srv := &completionServer{t: t, attempts: map[string]int{}, failing: map[string]bool{}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a", "model-b"}))

	out, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.9, 100)
	require.NoError(t, err)
	require.Equal(t, "completion from model-a", out)
	require.Equal(t, 1, srv.attempts["model-a"])
	require.Zero(t, srv.attempts["model-b"])
}

func TestChat_AllCandidatesExhausted(t *testing.T) {
	srv := &completionServer{
		t:        t,
		attempts: map[string]int{},
		failing:  map[string]bool{"model-a": true, "model-b": true, "model-c": true},
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a", "model-b", "model-c"}))

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.9, 100)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeAllModelsFailed))
	require.Equal(t, 1, srv.attempts["model-a"])
	require.Equal(t, 1, srv.attempts["model-b"])
	require.Equal(t, 1, srv.attempts["model-c"])
}

func TestChat_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL, []string{"model-a"})
	cfg.LLM.APIKey = ""
	c := NewClient(cfg)

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.9, 100)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeCredentialMissing))
	require.Zero(t, requests, "must fail fast without any network attempt")
}

func TestChat_SendsAttributionHeaders(t *testing.T) {
	var gotReferer, gotTitle, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a"}))
	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.9, 100)
	require.NoError(t, err)
	require.Equal(t, "https://devilpov.app", gotReferer)
	require.Equal(t, "Devil POV", gotTitle)
	require.Equal(t, "Bearer sk-test", gotAuth)
}

func TestAnalysisChat_SingleModelNoFallback(t *testing.T) {
	var models []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a", "model-b"}))

	_, err := c.AnalysisChat(context.Background(), []Message{{Role: RoleUser, Content: "text"}}, 2500)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeLLMProviderError))
	// 单次失败直接传播，不推进到回退链
	require.Equal(t, []string{"analysis-model"}, models)
}

func TestTagChat_UsesTagModelAndBudget(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "@Shadow"}}},
		})
	}))
	defer ts.Close()

	c := NewClient(testConfig(ts.URL, []string{"model-a"}))
	out, err := c.TagChat(context.Background(), []Message{{Role: RoleUser, Content: "generate"}})
	require.NoError(t, err)
	require.Equal(t, "@Shadow", out)
	require.Equal(t, "tag-model", got.Model)
	require.Equal(t, tagMaxTokens, got.MaxTokens)
	require.InDelta(t, tagTemperature, got.Temperature, 1e-9)
}
