// Package action 实现写作动作的分发与提示词组装
package action

import "devil-pov-api/internal/infrastructure/llm"

// Action 写作动作标识
type Action string

// 支持的动作全集
const (
	ActionUnhinge       Action = "unhinge"
	ActionUnleash       Action = "unleash"
	ActionNoMercy       Action = "noMercy"
	ActionInvoke        Action = "invoke"
	ActionIntensify     Action = "intensify"
	ActionCharacterChat Action = "characterChat"
	ActionDevilPOV      Action = "devilPOV"

	ActionOveruseScanner    Action = "overuse_scanner"
	ActionPacingAnalyzer    Action = "pacing_analyzer"
	ActionSentenceMechanics Action = "sentence_mechanics"
	ActionDialogueCritic    Action = "dialogue_critic"
	ActionStructuralCheck   Action = "structural_check"
	ActionAICritic          Action = "ai_critic"
	ActionTagGeneration     Action = "tag_generation"
)

// Default 缺省动作：恶魔视角章节生成
const Default = ActionDevilPOV

var known = map[Action]struct{}{
	ActionUnhinge:           {},
	ActionUnleash:           {},
	ActionNoMercy:           {},
	ActionInvoke:            {},
	ActionIntensify:         {},
	ActionCharacterChat:     {},
	ActionDevilPOV:          {},
	ActionOveruseScanner:    {},
	ActionPacingAnalyzer:    {},
	ActionSentenceMechanics: {},
	ActionDialogueCritic:    {},
	ActionStructuralCheck:   {},
	ActionAICritic:          {},
	ActionTagGeneration:     {},
}

// ActionFor 把请求中的 action 字符串映射到动作
// 未知值与缺省值一样落到 Default，保持宽容的缺省派发行为。
func ActionFor(s string) Action {
	a := Action(s)
	if _, ok := known[a]; ok {
		return a
	}
	return Default
}

// Request 动作请求载荷
// 每个动作只读取自己声明的字段，字段集合见各 handler 的校验。
type Request struct {
	Action string `json:"action"`

	ChapterContent  string `json:"chapterContent"`
	SelectedText    string `json:"selectedText"`
	UserPrompt      string `json:"userPrompt"`
	ContextBefore   string `json:"contextBefore"`
	ContextAfter    string `json:"contextAfter"`
	PreviousChapter string `json:"previousChapter"`

	UserMessage         string        `json:"userMessage"`
	CharacterName       string        `json:"characterName"`
	ChatbotInstructions string        `json:"chatbotInstructions"`
	ChatHistory         []llm.Message `json:"chatHistory"`

	CharacterTags []string `json:"characterTags"`
	StoryTags     []string `json:"storyTags"`
	CatalystTags  []string `json:"catalystTags"`
	Tags          []string `json:"tags"`

	Text    string `json:"text"`
	Persona string `json:"persona"`

	Name         string   `json:"name"`
	Type         string   `json:"type"`
	ExistingTags []string `json:"existingTags"`
}

// Result 动作执行结果
// Data 是返回给调用方的载荷（文本、标记数组或标签对象）；
// Text 是模型的原始输出文本，用于生成字符数统计。
type Result struct {
	Data any
	Text string
}

// Marker 分析动作产出的单条结构化发现
type Marker struct {
	Icon    string `json:"icon"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// TagResult 标签生成动作的返回载荷
type TagResult struct {
	Tag string `json:"tag"`
}
