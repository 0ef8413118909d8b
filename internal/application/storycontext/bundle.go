package storycontext

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Bundle 合并进系统提示词的可选上下文集合，所有字段默认为空，缺失不是错误
type Bundle struct {
	Personality string
	History     []Session
	Chapters    []Chapter
	Catalyst    string
}

// BundleOptions 指定需要抓取哪些上下文以及各自的标签
type BundleOptions struct {
	CharacterTags []string
	StoryTags     []string
	CatalystTags  []string

	WithPersonality bool
	WithHistory     bool
	WithChapters    bool
	WithCatalyst    bool
}

// FetchBundle 并发抓取请求的上下文子集
// 每个抓取器自身已把失败收敛为空默认值，汇合点不会失败。
func (f *Fetcher) FetchBundle(ctx context.Context, opts BundleOptions) *Bundle {
	bundle := &Bundle{}

	g, gctx := errgroup.WithContext(ctx)

	if opts.WithPersonality {
		g.Go(func() error {
			bundle.Personality = f.CharacterPersonality(gctx, opts.CharacterTags)
			return nil
		})
	}
	if opts.WithHistory {
		g.Go(func() error {
			bundle.History = f.ChatHistory(gctx, opts.CharacterTags)
			return nil
		})
	}
	if opts.WithChapters {
		g.Go(func() error {
			bundle.Chapters = f.RelatedChapters(gctx, opts.StoryTags)
			return nil
		})
	}
	if opts.WithCatalyst {
		g.Go(func() error {
			bundle.Catalyst = f.CatalystIntel(gctx, opts.CatalystTags)
			return nil
		})
	}

	_ = g.Wait()
	return bundle
}
