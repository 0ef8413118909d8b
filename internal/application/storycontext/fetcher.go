// Package storycontext 从内容后端聚合角色/剧情上下文
package storycontext

import (
	"context"
	"encoding/json"

	"devil-pov-api/internal/application/storyutil"
	"devil-pov-api/internal/infrastructure/llm"
	"devil-pov-api/pkg/logger"
)

// 各集合的查询上限
const (
	characterLimit   = 1
	chatHistoryLimit = 5
	chapterLimit     = 3
	catalystLimit    = 1

	// 相关章节正文截断长度
	chapterContentMaxRunes = 1500
)

// 集合名
const (
	collectionCharacters = "Characters"
	collectionChatHist   = "ChatWithCharacters"
	collectionChapters   = "BackupChapters"
	collectionCatalyst   = "Catalyst"
)

// Querier CMS 查询适配器的抽象，便于测试替换
type Querier interface {
	Query(ctx context.Context, collection string, filter map[string]any, limit int) []map[string]any
}

// Session 一次历史聊天会话的消息记录
type Session struct {
	Messages []llm.Message `json:"messages"`
}

// Chapter 一条相关章节摘录
type Chapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fetcher 上下文抓取器：四类查询全部遵循同一契约
// 空标签立即返回空默认值且不发起网络调用；无匹配记录同样返回空默认值。
type Fetcher struct {
	store Querier
}

// NewFetcher 创建上下文抓取器
func NewFetcher(store Querier) *Fetcher {
	return &Fetcher{store: store}
}

// CharacterPersonality 按标签查询角色集合并取 personality 字段，缺失时返回空串
func (f *Fetcher) CharacterPersonality(ctx context.Context, characterTags []string) string {
	tag := storyutil.FirstTag(characterTags)
	if tag == "" {
		return ""
	}

	items := f.store.Query(ctx, collectionCharacters, map[string]any{"tags": tag}, characterLimit)
	if len(items) == 0 {
		return ""
	}
	personality, _ := items[0]["personality"].(string)
	return personality
}

// ChatHistory 按标签查询历史聊天会话，每条记录的消息日志可能以序列化文本存储
// 单条记录解码失败只清空该记录的消息，不中断整批抓取。
func (f *Fetcher) ChatHistory(ctx context.Context, characterTags []string) []Session {
	tag := storyutil.FirstTag(characterTags)
	if tag == "" {
		return nil
	}

	items := f.store.Query(ctx, collectionChatHist, map[string]any{"tags": tag}, chatHistoryLimit)
	if len(items) == 0 {
		return nil
	}

	sessions := make([]Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, Session{Messages: decodeMessageLog(ctx, item["messages"])})
	}
	return sessions
}

// decodeMessageLog 解码单条记录的消息日志字段
func decodeMessageLog(ctx context.Context, raw any) []llm.Message {
	switch v := raw.(type) {
	case string:
		var msgs []llm.Message
		if err := json.Unmarshal([]byte(v), &msgs); err != nil {
			logger.Debug(ctx, "malformed message log in chat history record", "error", err.Error())
			return []llm.Message{}
		}
		return msgs
	case []any:
		// 已经是结构化数组时经由 JSON 往返归一化
		b, err := json.Marshal(v)
		if err != nil {
			return []llm.Message{}
		}
		var msgs []llm.Message
		if err := json.Unmarshal(b, &msgs); err != nil {
			return []llm.Message{}
		}
		return msgs
	default:
		return []llm.Message{}
	}
}

// RelatedChapters 按剧情标签查询备用章节，正文截断到 1500 字符
func (f *Fetcher) RelatedChapters(ctx context.Context, storyTags []string) []Chapter {
	tag := storyutil.FirstTag(storyTags)
	if tag == "" {
		return nil
	}

	items := f.store.Query(ctx, collectionChapters, map[string]any{"tags": tag}, chapterLimit)
	if len(items) == 0 {
		return nil
	}

	chapters := make([]Chapter, 0, len(items))
	for _, item := range items {
		title, _ := item["title"].(string)
		content, _ := item["content"].(string)
		chapters = append(chapters, Chapter{
			Title:   title,
			Content: storyutil.TruncateByRunes(content, chapterContentMaxRunes),
		})
	}
	return chapters
}

// CatalystIntel 按标题子串匹配查询催化剂集合，返回首条记录完整数据的 JSON 文本
func (f *Fetcher) CatalystIntel(ctx context.Context, catalystTags []string) string {
	tag := storyutil.FirstTag(catalystTags)
	if tag == "" {
		return ""
	}

	items := f.store.Query(ctx, collectionCatalyst, map[string]any{
		"title": map[string]any{"$contains": tag},
	}, catalystLimit)
	if len(items) == 0 {
		return ""
	}

	b, err := json.Marshal(items[0])
	if err != nil {
		return ""
	}
	return string(b)
}
