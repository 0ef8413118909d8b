package storycontext

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"devil-pov-api/internal/infrastructure/llm"
)

// fakeQuerier 记录每次查询并按集合名返回预置结果
type fakeQuerier struct {
	mu      sync.Mutex
	calls   int
	byColl  map[string][]map[string]any
	lastReq struct {
		collection string
		filter     map[string]any
		limit      int
	}
}

func (f *fakeQuerier) Query(_ context.Context, collection string, filter map[string]any, limit int) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq.collection = collection
	f.lastReq.filter = filter
	f.lastReq.limit = limit
	return f.byColl[collection]
}

func TestCharacterPersonality(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"Characters": {{"personality": "ruthless, charming, patient"}},
	}}
	f := NewFetcher(q)

	got := f.CharacterPersonality(context.Background(), []string{"@Vex", "@Ignored"})
	require.Equal(t, "ruthless, charming, patient", got)
	require.Equal(t, "Characters", q.lastReq.collection)
	require.Equal(t, 1, q.lastReq.limit)
	// 只使用首个标签
	require.Equal(t, "@Vex", q.lastReq.filter["tags"])
}

func TestFetchers_EmptyTagsSkipNetwork(t *testing.T) {
	q := &fakeQuerier{}
	f := NewFetcher(q)
	ctx := context.Background()

	require.Equal(t, "", f.CharacterPersonality(ctx, nil))
	require.Empty(t, f.ChatHistory(ctx, []string{}))
	require.Empty(t, f.RelatedChapters(ctx, []string{"  "}))
	require.Equal(t, "", f.CatalystIntel(ctx, nil))
	require.Zero(t, q.calls, "empty tag input must not trigger any query")
}

func TestFetchers_NoMatchYieldsEmptyDefault(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{}}
	f := NewFetcher(q)
	ctx := context.Background()

	require.Equal(t, "", f.CharacterPersonality(ctx, []string{"@Nobody"}))
	require.Empty(t, f.ChatHistory(ctx, []string{"@Nobody"}))
	require.Empty(t, f.RelatedChapters(ctx, []string{"@Nowhere"}))
	require.Equal(t, "", f.CatalystIntel(ctx, []string{"@Nothing"}))
}

func TestChatHistory_MalformedRecordIsolated(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"ChatWithCharacters": {
			{"messages": `[{"role":"user","content":"hello"},{"role":"assistant","content":"hi"}]`},
			{"messages": `{{not json`},
			{"messages": `[{"role":"user","content":"again"}]`},
		},
	}}
	f := NewFetcher(q)

	sessions := f.ChatHistory(context.Background(), []string{"@Vex"})
	require.Len(t, sessions, 3)
	require.Len(t, sessions[0].Messages, 2)
	require.Equal(t, llm.Message{Role: "user", Content: "hello"}, sessions[0].Messages[0])
	// 畸形记录只清空自己的消息，不影响同批其它记录
	require.Empty(t, sessions[1].Messages)
	require.Len(t, sessions[2].Messages, 1)
}

func TestChatHistory_StructuredMessageLog(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"ChatWithCharacters": {
			{"messages": []any{map[string]any{"role": "user", "content": "hello"}}},
		},
	}}
	f := NewFetcher(q)

	sessions := f.ChatHistory(context.Background(), []string{"@Vex"})
	require.Len(t, sessions, 1)
	require.Equal(t, []llm.Message{{Role: "user", Content: "hello"}}, sessions[0].Messages)
}

func TestRelatedChapters_TruncatesContent(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"BackupChapters": {
			{"title": "The Long Night", "content": strings.Repeat("a", 4000)},
			{"title": "Short", "content": "brief"},
		},
	}}
	f := NewFetcher(q)

	chapters := f.RelatedChapters(context.Background(), []string{"@Storm"})
	require.Len(t, chapters, 2)
	require.Equal(t, "The Long Night", chapters[0].Title)
	require.Len(t, chapters[0].Content, 1500)
	require.Equal(t, "brief", chapters[1].Content)
	require.Equal(t, 3, q.lastReq.limit)
}

func TestCatalystIntel_MarshalsFirstRecord(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"Catalyst": {{"title": "Storm Surge", "intel": "the bridge is out"}},
	}}
	f := NewFetcher(q)

	got := f.CatalystIntel(context.Background(), []string{"storm"})
	require.Contains(t, got, `"title":"Storm Surge"`)
	require.Contains(t, got, `"intel":"the bridge is out"`)
	// 子串匹配过滤
	require.Equal(t, map[string]any{"$contains": "storm"}, q.lastReq.filter["title"])
}

func TestFetchBundle_FetchesRequestedSubset(t *testing.T) {
	q := &fakeQuerier{byColl: map[string][]map[string]any{
		"Characters": {{"personality": "cunning"}},
		"Catalyst":   {{"title": "Storm"}},
	}}
	f := NewFetcher(q)

	bundle := f.FetchBundle(context.Background(), BundleOptions{
		CharacterTags:   []string{"@Vex"},
		CatalystTags:    []string{"storm"},
		WithPersonality: true,
		WithCatalyst:    true,
	})

	require.Equal(t, "cunning", bundle.Personality)
	require.Contains(t, bundle.Catalyst, "Storm")
	require.Empty(t, bundle.History)
	require.Empty(t, bundle.Chapters)
}
