package core

import "github.com/rushteam/itemcf/pkg/utils"

// ParamItemID 是请求参数中指定种子物品的 key（"看了又看"场景）。
const ParamItemID = "item_id"

// RecommendContext 承载用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// History 是用户最近交互过的物品及评分（itemID -> rating），
	// i2i 召回以它为种子，history 过滤器以它去重。
	History map[string]float64

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 top_n、query 等
	Params map[string]any
}

// PutLabel 写入用户级 Label。
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

// Seen 判断用户是否已经交互过该物品。
func (rctx *RecommendContext) Seen(itemID string) bool {
	if rctx == nil || rctx.History == nil {
		return false
	}
	_, ok := rctx.History[itemID]
	return ok
}
