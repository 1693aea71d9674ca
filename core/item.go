package core

import "github.com/rushteam/shoprec/pkg/utils"

// Reason 标识推荐条目的来源，用于解释与合并去重时的优先级判定。
type Reason string

const (
	ReasonPersonalized Reason = "personalized" // 个性化推荐
	ReasonPopular      Reason = "popular"      // 全局热门
	ReasonTrending     Reason = "trending"     // 近期上升
	ReasonSimilar      Reason = "similar"      // 相似商品
)

// Priority 返回 Reason 的合并优先级（值越小优先级越高）。
// 同分去重时按 personalized > trending > popular > similar 保留。
func (r Reason) Priority() int {
	switch r {
	case ReasonPersonalized:
		return 0
	case ReasonTrending:
		return 1
	case ReasonPopular:
		return 2
	case ReasonSimilar:
		return 3
	default:
		return 9
	}
}

// Item 是推荐链路中的统一承载结构：分数、来源、商品详情、标签。
// 每次请求新建，引擎本身从不持久化 Item（结果缓存除外，见 engine 包）。
type Item struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Reason  Reason                 `json:"reason"`
	Product *Product               `json:"product,omitempty"`
	Labels  map[string]utils.Label `json:"labels,omitempty"`
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
