package action

import (
	"context"
	"strings"

	"devil-pov-api/internal/application/storycontext"
	"devil-pov-api/internal/infrastructure/llm"
	"devil-pov-api/pkg/errors"
)

// characterChat 拼接到对话里的当前会话历史上限
const chatHistoryWindow = 70

func (s *Service) handleUnhinge(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.ChapterContent) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no chapter content provided")
	}

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: unhingeSystemPrompt},
		{Role: llm.RoleUser, Content: req.ChapterContent},
	}, 0.9, 3000)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleUnleash(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.ChapterContent) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no chapter content provided")
	}

	bundle := s.contexts.FetchBundle(ctx, storycontext.BundleOptions{
		CharacterTags:   req.CharacterTags,
		CatalystTags:    req.CatalystTags,
		WithPersonality: true,
		WithCatalyst:    true,
	})

	var b strings.Builder
	b.WriteString(unleashSystemPrompt)
	appendContextSections(&b, bundle)

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: b.String()},
		{Role: llm.RoleUser, Content: req.ChapterContent},
	}, 0.85, 2000)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleNoMercy(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.SelectedText) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no text provided to rewrite")
	}

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: noMercySystemPrompt},
		{Role: llm.RoleUser, Content: req.SelectedText},
	}, 0.9, 1500)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleInvoke(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no prompt provided")
	}

	bundle := s.contexts.FetchBundle(ctx, storycontext.BundleOptions{
		CharacterTags:   req.CharacterTags,
		CatalystTags:    req.CatalystTags,
		WithPersonality: true,
		WithCatalyst:    true,
	})

	var sys strings.Builder
	sys.WriteString(invokeSystemPrompt)
	appendContextSections(&sys, bundle)

	var user strings.Builder
	user.WriteString("Instruction: ")
	user.WriteString(req.UserPrompt)
	if req.ContextBefore != "" {
		user.WriteString("\n\nText before the insertion point:\n")
		user.WriteString(req.ContextBefore)
	}
	if req.ContextAfter != "" {
		user.WriteString("\n\nText after the insertion point:\n")
		user.WriteString(req.ContextAfter)
	}

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: sys.String()},
		{Role: llm.RoleUser, Content: user.String()},
	}, 0.85, 800)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleIntensify(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.SelectedText) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no text provided to enhance")
	}

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: intensifySystemPrompt},
		{Role: llm.RoleUser, Content: req.SelectedText},
	}, 0.8, 1500)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleCharacterChat(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no message provided")
	}

	bundle := s.contexts.FetchBundle(ctx, storycontext.BundleOptions{
		CharacterTags:   req.Tags,
		StoryTags:       req.Tags,
		CatalystTags:    req.Tags,
		WithPersonality: true,
		WithHistory:     true,
		WithChapters:    true,
		WithCatalyst:    true,
	})

	name := strings.TrimSpace(req.CharacterName)
	if name == "" {
		name = "the character"
	}

	messages := make([]llm.Message, 0, len(req.ChatHistory)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: buildCharacterChatSystemPrompt(name, req.ChatbotInstructions, bundle),
	})
	// 当前会话历史按原顺序拼入，只保留最后 70 条
	history := req.ChatHistory
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.UserMessage})

	text, err := s.gen.Chat(ctx, messages, 0.85, 500)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}

func (s *Service) handleDevilPOV(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(req.PreviousChapter) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "no previous chapter provided")
	}

	bundle := s.contexts.FetchBundle(ctx, storycontext.BundleOptions{
		CharacterTags:   req.CharacterTags,
		StoryTags:       req.StoryTags,
		CatalystTags:    req.CatalystTags,
		WithPersonality: true,
		WithHistory:     true,
		WithChapters:    true,
		WithCatalyst:    true,
	})

	var b strings.Builder
	b.WriteString(devilPOVSystemPrompt)
	appendContextSections(&b, bundle)

	text, err := s.gen.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: b.String()},
		{Role: llm.RoleUser, Content: "Previous chapter:\n\n" + req.PreviousChapter},
	}, 0.9, 2500)
	if err != nil {
		return nil, err
	}
	return &Result{Data: text, Text: text}, nil
}
