package action

import (
	"context"

	"devil-pov-api/internal/application/storycontext"
	"devil-pov-api/internal/infrastructure/llm"
	"devil-pov-api/pkg/logger"
	"devil-pov-api/pkg/tracer"
)

// Generator LLM 调用方的抽象
// Chat 走多模型回退链；AnalysisChat/TagChat 固定单一模型，失败直接传播。
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message, temperature float64, maxTokens int) (string, error)
	AnalysisChat(ctx context.Context, messages []llm.Message, maxTokens int) (string, error)
	TagChat(ctx context.Context, messages []llm.Message) (string, error)
}

// ContextSource 上下文聚合的抽象
type ContextSource interface {
	FetchBundle(ctx context.Context, opts storycontext.BundleOptions) *storycontext.Bundle
}

type handlerFunc func(ctx context.Context, req *Request) (*Result, error)

// Service 动作分发服务：每个动作一个 handler，公共构造模式为
// 校验必填文本 -> 并发抓取所需上下文 -> 组装对话 -> 调用生成器 -> 后处理
type Service struct {
	gen      Generator
	contexts ContextSource

	handlers map[Action]handlerFunc
}

// NewService 创建动作分发服务
func NewService(gen Generator, contexts ContextSource) *Service {
	s := &Service{
		gen:      gen,
		contexts: contexts,
	}
	s.handlers = map[Action]handlerFunc{
		ActionUnhinge:           s.handleUnhinge,
		ActionUnleash:           s.handleUnleash,
		ActionNoMercy:           s.handleNoMercy,
		ActionInvoke:            s.handleInvoke,
		ActionIntensify:         s.handleIntensify,
		ActionCharacterChat:     s.handleCharacterChat,
		ActionDevilPOV:          s.handleDevilPOV,
		ActionOveruseScanner:    s.analysisHandler(ActionOveruseScanner, 3000),
		ActionPacingAnalyzer:    s.analysisHandler(ActionPacingAnalyzer, 2500),
		ActionSentenceMechanics: s.analysisHandler(ActionSentenceMechanics, 2500),
		ActionDialogueCritic:    s.analysisHandler(ActionDialogueCritic, 2500),
		ActionStructuralCheck:   s.analysisHandler(ActionStructuralCheck, 3000),
		ActionAICritic:          s.handleAICritic,
		ActionTagGeneration:     s.handleTagGeneration,
	}
	return s
}

// Handle 执行一个动作
func (s *Service) Handle(ctx context.Context, a Action, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "action."+string(a))
	defer span.End()

	ctx = logger.WithContext(ctx, logger.ActionKey, string(a))

	h, ok := s.handlers[a]
	if !ok {
		// 未知动作与缺省动作同路（宽容缺省派发）
		h = s.handlers[Default]
	}
	return h(ctx, req)
}
