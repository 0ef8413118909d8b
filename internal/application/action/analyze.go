package action

import (
	"context"
	"strings"

	"devil-pov-api/internal/application/storyutil"
	"devil-pov-api/internal/infrastructure/llm"
	"devil-pov-api/pkg/errors"
)

// analysisHandler 构造一个手稿分析 handler：固定单模型调用 + 标记数组解析
func (s *Service) analysisHandler(a Action, maxTokens int) handlerFunc {
	sysPrompt := analysisSystemPrompts[a]
	return func(ctx context.Context, req *Request) (*Result, error) {
		if strings.TrimSpace(req.Text) == "" {
			return nil, errors.New(errors.CodeInvalidParam, "no text provided to analyze")
		}

		raw, err := s.gen.AnalysisChat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: sysPrompt},
			{Role: llm.RoleUser, Content: req.Text},
		}, maxTokens)
		if err != nil {
			return nil, err
		}

		markers, err := parseMarkers(raw)
		if err != nil {
			return nil, err
		}
		return &Result{Data: markers, Text: raw}, nil
	}
}

func (s *Service) handleAICritic(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no text provided to critique")
	}

	raw, err := s.gen.AnalysisChat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: criticSystemPrompt(req.Persona)},
		{Role: llm.RoleUser, Content: req.Text},
	}, 3500)
	if err != nil {
		return nil, err
	}

	markers, err := parseMarkers(raw)
	if err != nil {
		return nil, err
	}
	return &Result{Data: markers, Text: raw}, nil
}

func (s *Service) handleTagGeneration(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no name provided")
	}
	kind := strings.TrimSpace(req.Type)
	if kind != "character" && kind != "story" {
		kind = "character"
	}

	raw, err := s.gen.TagChat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: buildTagGenerationPrompt(req.Name, kind, req.ExistingTags)},
	})
	if err != nil {
		return nil, err
	}

	tag := sanitizeTag(raw)
	if tag == "" {
		return nil, errors.New(errors.CodeGenerationFailed, "model did not produce a usable tag")
	}
	return &Result{Data: TagResult{Tag: tag}, Text: raw}, nil
}

// sanitizeTag 把模型输出收敛成单个 @ 前缀标签
func sanitizeTag(raw string) string {
	tag := storyutil.StripCodeFences(raw)
	tag = strings.Trim(tag, "\"'` \n\t")
	if fields := strings.Fields(tag); len(fields) > 0 {
		tag = fields[0]
	} else {
		return ""
	}
	if !strings.HasPrefix(tag, "@") {
		tag = "@" + tag
	}
	if len(tag) <= 1 {
		return ""
	}
	return tag
}
