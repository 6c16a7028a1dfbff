package data

import (
	"fmt"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pkg/conv"
)

// Records 是以 map 表示的交互表（如 JSON / YAML 解析结果、测试数据），
// 列名使用规范列名。
//
// 评分接受数值或数字字符串；标识接受字符串或整数。
// 每一行都必须带齐必需列，值可以为 nil。
type Records []map[string]any

// Interactions 实现 core.InteractionTable。
func (rs Records) Interactions() ([]core.Interaction, error) {
	out := make([]core.Interaction, 0, len(rs))
	for i, r := range rs {
		for _, col := range RequiredColumns {
			if _, ok := r[col]; !ok {
				return nil, fmt.Errorf("%w: row %d %s", core.ErrMissingColumn, i, col)
			}
		}
		rating, ok := conv.ParseFloat64(r[ColRating])
		if !ok {
			return nil, fmt.Errorf("%w: row %d rating %v", core.ErrTypeMismatch, i, r[ColRating])
		}
		userID, okU := conv.ToString(r[ColUserID])
		itemID, okI := conv.ToString(r[ColItemID])
		if !okU || !okI || userID == "" || itemID == "" {
			continue
		}
		label, _ := conv.ToString(r[ColLabel])
		out = append(out, core.Interaction{
			UserID: userID,
			ItemID: itemID,
			Rating: rating,
			Label:  label,
		})
	}
	return out, nil
}
