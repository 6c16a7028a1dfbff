// Package data 是推荐引擎的数据接入边界：读取 CSV（本地 / S3 兼容对象存储 / HTTP），
// 清洗并转换为 core.InteractionTable。
//
// 引擎本身不读文件、不访问存储；这里决定列名到 core.Interaction 字段的映射，
// 并在这里产生 MISSING_COLUMN / TYPE_MISMATCH 错误。
package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/rushteam/itemcf/core"
)

// 清洗后表的规范列名。
const (
	ColUserID = "user_id"
	ColItemID = "item_id"
	ColRating = "rating"
	ColLabel  = "item_label"
)

// RequiredColumns 是引擎要求的四列。
var RequiredColumns = []string{ColUserID, ColItemID, ColRating, ColLabel}

// Frame 把 gota DataFrame 适配为 core.InteractionTable。
//
// 评分列无法转换为数值（含缺失值）时整张表被拒绝（TYPE_MISMATCH），不做逐行丢弃；
// user_id / item_id 缺失的行被跳过，跳过数量见 Skipped。
type Frame struct {
	df      dataframe.DataFrame
	skipped int
}

// NewFrame 包装一个已使用规范列名的 DataFrame。
func NewFrame(df dataframe.DataFrame) *Frame {
	return &Frame{df: df}
}

// DataFrame 返回底层 DataFrame。
func (f *Frame) DataFrame() dataframe.DataFrame { return f.df }

// Nrow 返回行数。
func (f *Frame) Nrow() int { return f.df.Nrow() }

// Skipped 返回最近一次 Interactions 跳过的行数。
func (f *Frame) Skipped() int { return f.skipped }

// Interactions 实现 core.InteractionTable。
func (f *Frame) Interactions() ([]core.Interaction, error) {
	if f.df.Err != nil {
		return nil, fmt.Errorf("data frame: %w", f.df.Err)
	}
	if err := checkColumns(f.df.Names()); err != nil {
		return nil, err
	}

	users := f.df.Col(ColUserID)
	items := f.df.Col(ColItemID)
	ratings := f.df.Col(ColRating)
	labels := f.df.Col(ColLabel)

	n := f.df.Nrow()
	out := make([]core.Interaction, 0, n)
	f.skipped = 0
	for i := 0; i < n; i++ {
		rating, err := ratingAt(ratings, i)
		if err != nil {
			return nil, err
		}
		userID, okU := stringAt(users, i)
		itemID, okI := stringAt(items, i)
		if !okU || !okI {
			f.skipped++
			continue
		}
		label, _ := stringAt(labels, i)
		out = append(out, core.Interaction{
			UserID: userID,
			ItemID: itemID,
			Rating: rating,
			Label:  label,
		})
	}
	return out, nil
}

func checkColumns(names []string) error {
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			return fmt.Errorf("%w: %s", core.ErrMissingColumn, col)
		}
	}
	return nil
}

// stringAt 返回第 i 个元素的字符串形式；缺失值返回 ("", false)。
func stringAt(s series.Series, i int) (string, bool) {
	e := s.Elem(i)
	if e.IsNA() {
		return "", false
	}
	v := strings.TrimSpace(e.String())
	return v, v != ""
}

func ratingAt(s series.Series, i int) (float64, error) {
	e := s.Elem(i)
	if e.IsNA() {
		return 0, fmt.Errorf("%w: row %d has no rating", core.ErrTypeMismatch, i)
	}
	switch s.Type() {
	case series.Float, series.Int:
		v := e.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: row %d rating %v", core.ErrTypeMismatch, i, v)
		}
		return v, nil
	case series.String:
		raw := strings.TrimSpace(e.String())
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: row %d rating %q", core.ErrTypeMismatch, i, raw)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: row %d rating column has type %s", core.ErrTypeMismatch, i, s.Type())
	}
}
