package core

// Interaction 是一条清洗后的交互记录：用户对物品的评分，以及物品的展示名称。
// 字段在数据接入边界（data 包）确定，引擎不依赖列位置或其他可选字段。
type Interaction struct {
	UserID string
	ItemID string
	Rating float64
	Label  string
}

// InteractionTable 是引擎消费的输入表。
//
// 实现：
//   - core.Interactions（内存切片，直接返回自身）
//   - data.Frame（基于 DataFrame，负责 MISSING_COLUMN / TYPE_MISMATCH 校验）
type InteractionTable interface {
	Interactions() ([]Interaction, error)
}

// Interactions 是 InteractionTable 的切片实现，行顺序即输入顺序。
type Interactions []Interaction

func (s Interactions) Interactions() ([]Interaction, error) {
	return s, nil
}
