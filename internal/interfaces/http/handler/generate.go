// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"devil-pov-api/internal/application/action"
	"devil-pov-api/internal/interfaces/http/dto"
	"devil-pov-api/pkg/errors"
	"devil-pov-api/pkg/logger"
	"devil-pov-api/pkg/metrics"
)

// GenerateHandler 写作动作入口处理器
type GenerateHandler struct {
	actions *action.Service
}

// NewGenerateHandler 创建写作动作处理器
func NewGenerateHandler(actions *action.Service) *GenerateHandler {
	return &GenerateHandler{actions: actions}
}

// Generate 处理 POST /devil-pov
// 读取 action 判别字段（缺省或未知时落到缺省动作），分发到对应 handler，
// 测量耗时并写入统一成功/失败信封，每个请求恰好一次响应。
func (h *GenerateHandler) Generate(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	var req action.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		act := string(action.Default)
		metrics.ActionRequestsTotal.WithLabelValues(act, "error").Inc()
		dto.GenerateFailure(c, act, "invalid request body: "+err.Error())
		return
	}

	act := action.ActionFor(req.Action)
	name := string(act)

	result, err := h.actions.Handle(ctx, act, &req)
	elapsed := time.Since(start)
	metrics.ActionDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ActionRequestsTotal.WithLabelValues(name, "error").Inc()
		logger.Error(ctx, "action failed", err, "elapsed_ms", elapsed.Milliseconds())
		dto.GenerateFailure(c, name, errorDetails(err))
		return
	}

	chars := utf8.RuneCountInString(result.Text)
	metrics.ActionRequestsTotal.WithLabelValues(name, "success").Inc()
	metrics.ActionCharsGenerated.WithLabelValues(name).Observe(float64(chars))
	logger.Info(ctx, "action completed",
		"chars_generated", chars,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	dto.GenerateSuccess(c, result.Data, chars, elapsed.Milliseconds())
}

// errorDetails 提取对调用方可见的错误详情
func errorDetails(err error) string {
	if appErr, ok := err.(*errors.AppError); ok {
		if appErr.Detail != "" {
			return appErr.Message + ": " + appErr.Detail
		}
		return appErr.Message
	}
	return err.Error()
}
