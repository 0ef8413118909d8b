// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GenerateResponse 生成成功的统一响应信封
type GenerateResponse struct {
	Status         string `json:"status"`
	Result         any    `json:"result"`
	CharsGenerated int    `json:"charsGenerated"`
	ProcessingTime int64  `json:"processingTime"`
}

// GenerateError 生成失败的统一响应信封
type GenerateError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// GenerateSuccess 返回生成成功响应
func GenerateSuccess(c *gin.Context, result any, charsGenerated int, processingTimeMs int64) {
	c.JSON(http.StatusOK, GenerateResponse{
		Status:         "success",
		Result:         result,
		CharsGenerated: charsGenerated,
		ProcessingTime: processingTimeMs,
	})
}

// GenerateFailure 返回生成失败响应
// 每个失败的请求恰好产生一次响应写入。
func GenerateFailure(c *gin.Context, actionName string, details string) {
	c.JSON(http.StatusInternalServerError, GenerateError{
		Error:   actionName + " failed",
		Details: details,
	})
}
