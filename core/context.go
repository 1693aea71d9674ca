package core

import "github.com/rushteam/shoprec/pkg/utils"

// RecommendContext 承载请求身份与场景信息，贯穿整个推荐链路透传。
//
// 身份二选一：
//   - UserID：已登录账号，允许真正的个性化
//   - SessionID：游客的临时会话，只能走热门兜底（引擎不持久化）
type RecommendContext struct {
	UserID    string // 已登录用户 ID，为空表示游客
	SessionID string // 游客会话 ID，仅用于分页去重的记账 key
	Scene     string // 场景标识，例如 "home_feed" / "product_detail"

	// ProductID 是上下文商品（例如详情页的"相似推荐"），可为空
	ProductID string

	// Labels 是请求级标签，可驱动链路行为（例如新用户、降级标记）
	Labels map[string]utils.Label

	// Params 请求级上下文参数：window_days、device_type 等
	Params map[string]any
}

// IsGuest 判断当前身份是否为游客。
// 游客永远不会进入 PersonalizationEngine，由调用方提前路由到热门兜底。
func (rctx *RecommendContext) IsGuest() bool {
	return rctx == nil || rctx.UserID == ""
}

// Subject 返回用于记账（分页去重、曝光）的身份 key。
// 优先使用 UserID；游客使用 SessionID。
func (rctx *RecommendContext) Subject() string {
	if rctx == nil {
		return ""
	}
	if rctx.UserID != "" {
		return rctx.UserID
	}
	return rctx.SessionID
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
