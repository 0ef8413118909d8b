package action

import (
	"encoding/json"

	"devil-pov-api/internal/application/storyutil"
	"devil-pov-api/pkg/errors"
)

// parseMarkers 两段式解析模型输出：先剥掉已知包装（markdown 围栏），再做结构化解析
// 不尝试对畸形输出做语义修复；解析失败返回独立于生成错误的解析错误，
// 让运营方能区分"模型不可达"和"模型输出垃圾"。
func parseMarkers(raw string) ([]Marker, error) {
	cleaned := storyutil.StripCodeFences(raw)

	var markers []Marker
	if err := json.Unmarshal([]byte(cleaned), &markers); err != nil {
		return nil, errors.Wrap(err, errors.CodeMarkerParseFailed, "model output is not a valid marker array")
	}
	return markers, nil
}
