package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// Columns 是原始 CSV 列名到规范列名的映射。
type Columns struct {
	UserID string `yaml:"user_id" json:"user_id"`
	ItemID string `yaml:"item_id" json:"item_id"`
	Rating string `yaml:"rating" json:"rating"`
	Label  string `yaml:"item_label" json:"item_label"`
}

// DefaultColumns 对应 Book-Crossing 数据集的列名。
func DefaultColumns() Columns {
	return Columns{
		UserID: "User-ID",
		ItemID: "ISBN",
		Rating: "Rating",
		Label:  "Book-Title",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.UserID == "" {
		c.UserID = d.UserID
	}
	if c.ItemID == "" {
		c.ItemID = d.ItemID
	}
	if c.Rating == "" {
		c.Rating = d.Rating
	}
	if c.Label == "" {
		c.Label = d.Label
	}
	return c
}

// Loader 读取评分 CSV（可选再读取物品元数据 CSV 取得标题），清洗后返回 Frame。
//
// 清洗规则：
//   - 原始列名重命名为 user_id / item_id / rating / item_label
//   - 评分强制为数值，无法解析的行丢弃
//   - 只保留评分 > 0 的显式评分
type Loader struct {
	Ratings   Source
	Metadata  Source // 可选：物品元数据，提供 item_label
	Columns   Columns
	Delimiter rune // 默认 ';'
	Latin1    bool // 源文件为 ISO-8859-1 编码
	Logger    zerolog.Logger
}

// Load 读取并清洗数据。
func (l *Loader) Load(ctx context.Context) (*Frame, error) {
	if l.Ratings == nil {
		return nil, fmt.Errorf("loader: ratings source not set")
	}
	cols := l.Columns.withDefaults()

	df, err := l.read(ctx, l.Ratings, map[string]series.Type{
		cols.Rating: series.Float,
		ColRating:   series.Float,
	})
	if err != nil {
		return nil, err
	}
	df, err = normalize(df, cols)
	if err != nil {
		return nil, err
	}
	before := df.Nrow()

	if l.Metadata != nil {
		meta, err := l.read(ctx, l.Metadata, nil)
		if err != nil {
			return nil, err
		}
		df, err = joinLabels(df, meta, cols)
		if err != nil {
			return nil, err
		}
	}

	df = Clean(df)
	if df.Err != nil {
		return nil, fmt.Errorf("clean: %w", df.Err)
	}

	l.Logger.Info().
		Str("source", l.Ratings.String()).
		Int("rows", before).
		Int("kept", df.Nrow()).
		Msg("ratings loaded")
	return NewFrame(df), nil
}

func (l *Loader) read(ctx context.Context, src Source, types map[string]series.Type) (dataframe.DataFrame, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if l.Latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(rc)
	}
	df, skipped := ReadCSV(r, l.Delimiter, types)
	if df.Err != nil {
		return df, fmt.Errorf("read %s: %w", src, df.Err)
	}
	if skipped > 0 {
		l.Logger.Warn().Str("source", src.String()).Int("skipped", skipped).Msg("malformed csv lines skipped")
	}
	return df, nil
}

// ReadCSV 按字符串读取所有列（标识不做类型推断，避免 ISBN 等丢失前导 0），
// types 指定需要强制类型的列。delimiter 为 0 时使用 ';'。
//
// 字段数与表头不一致的行被跳过，第二个返回值是跳过的行数。
func ReadCSV(r io.Reader, delimiter rune, types map[string]series.Type) (dataframe.DataFrame, int) {
	if delimiter == 0 {
		delimiter = ';'
	}
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return dataframe.DataFrame{Err: err}, 0
	}

	skipped := 0
	if len(records) > 0 {
		width := len(records[0])
		kept := make([][]string, 1, len(records))
		kept[0] = records[0]
		for _, rec := range records[1:] {
			if len(rec) != width {
				skipped++
				continue
			}
			kept = append(kept, rec)
		}
		records = kept
	}

	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	}
	if len(types) > 0 {
		opts = append(opts, dataframe.WithTypes(types))
	}
	return dataframe.LoadRecords(records, opts...), skipped
}

// normalize 把原始列名重命名为规范列名；评分文件没有标题列时补一列空标题。
func normalize(df dataframe.DataFrame, cols Columns) (dataframe.DataFrame, error) {
	renames := [][2]string{
		{cols.UserID, ColUserID},
		{cols.ItemID, ColItemID},
		{cols.Rating, ColRating},
		{cols.Label, ColLabel},
	}
	for _, rn := range renames {
		names := df.Names()
		switch {
		case slices.Contains(names, rn[1]):
		case slices.Contains(names, rn[0]):
			df = df.Rename(rn[1], rn[0])
		case rn[1] == ColLabel:
			df = df.Mutate(series.New(make([]string, df.Nrow()), series.String, ColLabel))
		default:
			// 缺列留给 Frame.Interactions 报 MISSING_COLUMN
		}
		if df.Err != nil {
			return df, fmt.Errorf("normalize column %s: %w", rn[1], df.Err)
		}
	}
	return df, nil
}

// joinLabels 用元数据表为每行补标题：元数据中同一物品出现多次时取最后一个非空标题，
// 评分文件自带的非空标题优先。
func joinLabels(df, meta dataframe.DataFrame, cols Columns) (dataframe.DataFrame, error) {
	if !slices.Contains(df.Names(), ColItemID) {
		return df, nil
	}
	meta, err := normalize(meta, cols)
	if err != nil {
		return df, err
	}
	names := meta.Names()
	if !slices.Contains(names, ColItemID) || !slices.Contains(names, ColLabel) {
		return df, fmt.Errorf("metadata: need %s and %s columns, got %v", ColItemID, ColLabel, names)
	}

	titles := make(map[string]string, meta.Nrow())
	metaItems, metaLabels := meta.Col(ColItemID), meta.Col(ColLabel)
	for i := 0; i < meta.Nrow(); i++ {
		id, ok := stringAt(metaItems, i)
		if !ok {
			continue
		}
		if title, ok := stringAt(metaLabels, i); ok {
			titles[id] = title
		}
	}

	items, labels := df.Col(ColItemID), df.Col(ColLabel)
	joined := make([]string, df.Nrow())
	for i := range joined {
		if title, ok := stringAt(labels, i); ok {
			joined[i] = title
			continue
		}
		if id, ok := stringAt(items, i); ok {
			joined[i] = titles[id]
		}
	}
	return df.Mutate(series.New(joined, series.String, ColLabel)), nil
}

// Clean 丢弃评分缺失或 <= 0 的行。
func Clean(df dataframe.DataFrame) dataframe.DataFrame {
	if !slices.Contains(df.Names(), ColRating) || df.Nrow() == 0 {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    ColRating,
		Comparator: series.Greater,
		Comparando: 0.0,
	})
}
