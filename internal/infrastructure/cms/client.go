// Package cms 提供内容管理后端 (Wix Data) 的查询适配器
package cms

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
	"devil-pov-api/pkg/logger"
	"devil-pov-api/pkg/metrics"
)

// queryRequest Wix Data 查询接口的请求形状
type queryRequest struct {
	DataCollectionID string    `json:"dataCollectionId"`
	Query            queryBody `json:"query"`
}

type queryBody struct {
	Filter map[string]any `json:"filter"`
	Sort   []any          `json:"sort"`
	Paging queryPaging    `json:"paging"`
}

type queryPaging struct {
	Limit int `json:"limit"`
}

// queryResponse Wix Data 查询接口的响应形状
type queryResponse struct {
	DataItems []struct {
		ID   string         `json:"id"`
		Data map[string]any `json:"data"`
	} `json:"dataItems"`
}

// Client 对外部文档存储的薄查询客户端
// 过滤表达式按原样透传给存储端的查询 DSL，本层不解释其语义。
type Client struct {
	cfg        *config.CMSConfig
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

// NewClient 创建 CMS 查询客户端
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:        &cfg.CMS,
		httpClient: &http.Client{Timeout: cfg.CMS.Timeout},
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) queryURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		base = "https://www.wixapis.com/wix-data/v2"
	}
	return base + "/items/query"
}

// Query 对指定集合发起一次查询，返回每条记录的 data 对象
// 任何传输失败、非 2xx 状态或响应解析失败都收敛为空结果，不向调用方传播；
// 调用方只需要处理"缺失"，不需要处理"失败"。单次查询不重试。
func (c *Client) Query(ctx context.Context, collection string, filter map[string]any, limit int) []map[string]any {
	start := time.Now()
	items, err := c.query(ctx, collection, filter, limit)
	metrics.CMSQueryDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CMSQueriesTotal.WithLabelValues(collection, "error").Inc()
		logger.Warn(ctx, "cms query failed, returning empty result",
			"collection", collection,
			"error", err.Error(),
		)
		return nil
	}
	metrics.CMSQueriesTotal.WithLabelValues(collection, "success").Inc()
	return items
}

func (c *Client) query(ctx context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	body, err := json.Marshal(queryRequest{
		DataCollectionID: collection,
		Query: queryBody{
			Filter: filter,
			Sort:   []any{},
			Paging: queryPaging{Limit: limit},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cms: marshal query: %w", err)
	}

	url := c.queryURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cms: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("wix-site-id", c.cfg.SiteID)
	req.Header.Set("wix-account-id", c.cfg.AccountID)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("cms: unexpected status %d from %s: %s", res.StatusCode, url, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("cms: read response body: %w", err)
	}

	var payload queryResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("cms: decode response: %w", err)
	}

	items := make([]map[string]any, 0, len(payload.DataItems))
	for _, it := range payload.DataItems {
		if it.Data != nil {
			items = append(items, it.Data)
		}
	}
	return items, nil
}
