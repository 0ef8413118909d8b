// Package llm 提供 OpenRouter 聊天补全客户端
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"devil-pov-api/internal/config"
	"devil-pov-api/pkg/errors"
	"devil-pov-api/pkg/logger"
	"devil-pov-api/pkg/metrics"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// 固定温度：分析偏确定性，标签生成几乎确定性
const (
	analysisTemperature = 0.2
	tagTemperature      = 0.1
	tagMaxTokens        = 50
)

// Message 一条对话消息，顺序构成 LLM 上下文窗口
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest 聊天补全请求的最小形状
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// chatResponse 聊天补全响应的最小形状
type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// HTTPStatusError 携带状态码的上游错误
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client OpenRouter 客户端：按序回退的多模型调用 + 单模型分析调用
type Client struct {
	cfg        *config.LLMConfig
	httpClient *http.Client
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 注入自定义 HTTP 客户端（测试用）
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient 创建 LLM 客户端
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:        &cfg.LLM,
		httpClient: &http.Client{Timeout: cfg.LLM.Timeout},
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 120 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) completionsURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		base = "https://openrouter.ai/api/v1"
	}
	return base + "/chat/completions"
}

// Chat 按配置的模型链逐个尝试，返回首个成功补全
// 单个候选的传输错误或非 2xx 状态视为软失败，记录后推进到下一候选；
// 全部耗尽返回 CodeAllModelsFailed。
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.ErrCredentialMissing
	}
	if len(c.cfg.FallbackChain) == 0 {
		return "", errors.New(errors.CodeAllModelsFailed, "no candidate models configured")
	}

	var lastErr error
	for _, model := range c.cfg.FallbackChain {
		content, err := c.complete(ctx, model, messages, temperature, maxTokens)
		if err == nil {
			return content, nil
		}
		lastErr = err
		logger.Warn(ctx, "model attempt failed, advancing to next candidate",
			"model", model,
			"error", err.Error(),
		)
	}

	return "", errors.Wrap(lastErr, errors.CodeAllModelsFailed, "no model available")
}

// AnalysisChat 手稿分析专用：固定单一模型、低温度，不回退
func (c *Client) AnalysisChat(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.ErrCredentialMissing
	}
	content, err := c.complete(ctx, c.cfg.AnalysisModel, messages, analysisTemperature, maxTokens)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeLLMProviderError, "analysis model call failed")
	}
	return content, nil
}

// TagChat 标签生成专用：独立模型，几乎确定性的低温度
func (c *Client) TagChat(ctx context.Context, messages []Message) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.ErrCredentialMissing
	}
	content, err := c.complete(ctx, c.cfg.TagModel, messages, tagTemperature, tagMaxTokens)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeLLMProviderError, "tag model call failed")
	}
	return content, nil
}

// complete 对单一候选发起一次补全请求，不重试
func (c *Client) complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.completionsURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	// 提供商要求的归因头，常量而非用户输入
	req.Header.Set("HTTP-Referer", c.cfg.Referer)
	req.Header.Set("X-Title", c.cfg.AppTitle)

	raw, err := c.doJSONRequest(req, url)
	metrics.LLMCallDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMAttemptsTotal.WithLabelValues(model, "error").Inc()
		return "", err
	}
	metrics.LLMAttemptsTotal.WithLabelValues(model, "success").Inc()

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: no choices in response from %s", model)
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("llm: read response body: %w", err)
	}
	return buf, nil
}
