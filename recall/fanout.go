package recall

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 支持超时、限流与按分数/来源优先级的去重合并。
//
// 失败语义：单个召回源超时或报错时返回空结果，不中断其他来源；
// 只有所有来源都失败且无候选时才由上层判定整体失败。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：best / first / union（默认 best）
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		all   []*core.Item
		eg, _ = errgroup.WithContext(ctx)
	)

	// 限流：使用 semaphore 控制并发数
	sem := make(chan struct{}, n.MaxConcurrent)

	for _, src := range n.Sources {
		s := src

		eg.Go(func() error {
			if n.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他召回源
				return nil
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	switch n.MergeStrategy {
	case "union":
		return all, nil
	case "first":
		return n.mergeFirst(all), nil
	default: // "best" 或默认
		return MergeBest(all, n.Dedup), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// MergeBest 按 ID 去重，保留单项分数更高的条目；同分时按 Reason 优先级
// （personalized > trending > popular > similar）保留更具体的来源。
// 被合并条目的 Labels 会累积到保留的条目上，保证可解释性不丢失。
func MergeBest(all []*core.Item, dedup bool) []*core.Item {
	if !dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		old, exists := seen[it.ID]
		if !exists {
			seen[it.ID] = it
			out = append(out, it)
			continue
		}
		if betterThan(it, old) {
			// 替换保留项，位置沿用旧条目的槽位
			for i, cur := range out {
				if cur == old {
					out[i] = it
					break
				}
			}
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			seen[it.ID] = it
			continue
		}
		for k, v := range it.Labels {
			old.PutLabel(k, v)
		}
	}
	return out
}

// betterThan 判断 a 是否应替换 b：分数高者胜，同分时 Reason 优先级高者胜。
func betterThan(a, b *core.Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Reason.Priority() < b.Reason.Priority()
}
