// Package storyutil 提供动作应用层内部共享的工具函数。
package storyutil

import (
	"strings"
	"unicode/utf8"
)

// StripCodeFences 去掉模型输出外层的 markdown 代码围栏。
// 约定：只剥离首尾围栏，不改动围栏内部内容；无围栏时原样返回（trim 后）。
func StripCodeFences(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```")
	// 围栏可能带语言标记，如 ```json
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		first := strings.TrimSpace(raw[:idx])
		if first == "" || isFenceLang(first) {
			raw = raw[idx+1:]
		}
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func isFenceLang(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// TruncateByRunes 按 rune 数量截断字符串。
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// FirstTag 返回标签列表中的第一个非空标签。
// 所有调用点实际只使用首个标签做过滤，即使接受完整列表。
func FirstTag(tags []string) string {
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
