package model

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/sparse"
)

// DefaultTopN 是 topN <= 0 时使用的默认返回条数。
const DefaultTopN = 5

// Neighbor 是一条相似物品结果。
type Neighbor struct {
	ItemID string
	Index  int
	Label  string
	Score  float64
}

// Stats 汇总引擎当前状态，便于日志与观测。
type Stats struct {
	Users         int
	Items         int
	Interactions  int // 交互矩阵非零项（重复项合并后）
	Dropped       int // 标识无法解析而丢弃的行
	SimilarityNNZ int
	Prepared      bool
	Trained       bool
}

// ItemCF 是基于物品的协同过滤引擎（Item-based Collaborative Filtering, Item-CF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 流程（严格单向）：
//  1. Prepare：标识映射 + users×items 稀疏交互矩阵
//  2. Train：物品列两两余弦相似度，得到 items×items 稀疏相似度矩阵
//  3. Recommend / Neighbors：查询某物品的 TopN 相似物品
//
// 约定：
//   - 重复的 (user, item) 评分求和
//   - 相同分数按物品下标升序排列；查询物品本身永远不出现在结果中
//   - Train 完成后引擎只读，可被多个 goroutine 并发查询；
//     引擎不对 Prepare/Train 加锁，重训练需调用方自行与查询串行化
type ItemCF struct {
	logger zerolog.Logger

	users  *IDMap
	items  *IDMap
	labels *LabelTable

	interactions *sparse.CSR
	similarity   *sparse.CSR
	dropped      int

	prepared bool
	trained  bool
}

// Option 配置 ItemCF。
type Option func(*ItemCF)

// WithLogger 设置日志；默认不输出。
func WithLogger(logger zerolog.Logger) Option {
	return func(e *ItemCF) {
		e.logger = logger
	}
}

// NewItemCF 创建一个未准备的引擎。
func NewItemCF(opts ...Option) *ItemCF {
	e := &ItemCF{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", e.Name()).Logger()
	return e
}

func (e *ItemCF) Name() string {
	return "model.itemcf"
}

// Prepare 构建标识映射、标题表与交互矩阵，并使已有的相似度矩阵失效。
//
// 读取输入表失败（MISSING_COLUMN / TYPE_MISMATCH 等）时原样返回错误，引擎状态不变。
// 输入为空时返回 core.ErrEmptyInput，但引擎已进入合法的空状态，可继续 Train / 查询。
func (e *ItemCF) Prepare(table core.InteractionTable) error {
	if table == nil {
		return fmt.Errorf("prepare: %w", core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: nil interaction table"))
	}
	rows, err := table.Interactions()
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	users, items, labels := buildIndex(rows)
	matrix, dropped := buildInteractionMatrix(rows, users, items)

	e.users, e.items, e.labels = users, items, labels
	e.interactions = matrix
	e.dropped = dropped
	e.similarity = nil
	e.prepared = true
	e.trained = false

	e.logger.Info().
		Int("rows", len(rows)).
		Int("users", users.Len()).
		Int("items", items.Len()).
		Int("interactions", matrix.NNZ()).
		Int("dropped", dropped).
		Msg("interaction matrix prepared")

	if len(rows) == 0 {
		return core.ErrEmptyInput
	}
	return nil
}

// buildInteractionMatrix 把每一行解析为 (userIdx, itemIdx, rating) 并构建 CSR。
// 标识在映射中找不到的行被丢弃并计数。
func buildInteractionMatrix(rows []core.Interaction, users, items *IDMap) (*sparse.CSR, int) {
	b := sparse.NewBuilder(users.Len(), items.Len())
	b.Grow(len(rows))
	dropped := 0
	for _, r := range rows {
		u, okU := users.Index(r.UserID)
		i, okI := items.Index(r.ItemID)
		if !okU || !okI {
			dropped++
			continue
		}
		if err := b.Add(u, i, r.Rating); err != nil {
			dropped++
		}
	}
	return b.Build(), dropped
}

// Train 计算物品两两余弦相似度。重复调用会完整重算并替换上一次结果。
func (e *ItemCF) Train() error {
	if !e.prepared {
		return fmt.Errorf("train: %w", core.ErrNotPrepared)
	}
	start := time.Now()
	e.similarity = cosineItemSimilarity(e.interactions)
	e.trained = true

	e.logger.Info().
		Int("items", e.items.Len()).
		Int("similarity_nnz", e.similarity.NNZ()).
		Dur("elapsed", time.Since(start)).
		Msg("item similarity trained")
	return nil
}

// Neighbors 返回与 itemID 最相似的 topN 个物品。
//
// 返回值 found=false 表示物品不存在（与"存在但没有邻居"的空结果区分）。
// 结果条数恰为 min(topN, 物品数-1)：有存储相似度的物品按分数降序、下标升序排列，
// 不足时以相似度为 0 的物品按下标升序补齐，负分物品排在 0 分之后。
// topN <= 0 时使用 DefaultTopN。
//
// 判定物品是否存在只依赖标识映射，因此 Prepare 之后查询未知物品即返回 found=false
// （空输入的引擎对任何查询都如此）；已知物品在 Train 之前查询返回 core.ErrNotTrained。
func (e *ItemCF) Neighbors(itemID string, topN int) ([]Neighbor, bool, error) {
	if !e.prepared {
		return nil, false, fmt.Errorf("neighbors: %w", core.ErrNotTrained)
	}
	idx, ok := e.items.Index(itemID)
	if !ok {
		return nil, false, nil
	}
	if !e.trained {
		return nil, false, fmt.Errorf("neighbors: %w", core.ErrNotTrained)
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	n := e.items.Len()
	want := min(topN, n-1)
	out := make([]Neighbor, 0, want)
	if want <= 0 {
		return out, true, nil
	}

	cols, vals := e.similarity.Row(idx)
	positive := make([]Neighbor, 0, len(cols))
	var negative []Neighbor
	for k, j := range cols {
		if j == idx {
			continue
		}
		nb := Neighbor{Index: j, Score: vals[k]}
		switch {
		case vals[k] > 0:
			positive = append(positive, nb)
		case vals[k] < 0:
			negative = append(negative, nb)
		}
	}
	slices.SortFunc(positive, byScoreThenIndex)
	slices.SortFunc(negative, byScoreThenIndex)

	out = append(out, positive[:min(len(positive), want)]...)

	// 0 分补齐：归并遍历已排序的 cols，跳过自身与已存储的物品
	k := 0
	for j := 0; j < n && len(out) < want; j++ {
		for k < len(cols) && cols[k] < j {
			k++
		}
		if j == idx {
			continue
		}
		if k < len(cols) && cols[k] == j && vals[k] != 0 {
			continue
		}
		out = append(out, Neighbor{Index: j})
	}

	out = append(out, negative[:min(len(negative), want-len(out))]...)

	for i := range out {
		out[i].ItemID, _ = e.items.ID(out[i].Index)
		out[i].Label, _ = e.labels.Label(out[i].Index)
	}
	return out, true, nil
}

func byScoreThenIndex(a, b Neighbor) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Recommend 返回与 itemID 最相似的 topN 个物品的标题，语义同 Neighbors。
func (e *ItemCF) Recommend(itemID string, topN int) ([]string, bool, error) {
	neighbors, found, err := e.Neighbors(itemID, topN)
	if err != nil || !found {
		return nil, found, err
	}
	out := make([]string, len(neighbors))
	for i, nb := range neighbors {
		out[i] = nb.Label
	}
	return out, true, nil
}

// Similarity 返回两个物品之间存储的相似度；任一物品不存在时 found=false。
func (e *ItemCF) Similarity(a, b string) (float64, bool, error) {
	if !e.trained {
		return 0, false, fmt.Errorf("similarity: %w", core.ErrNotTrained)
	}
	i, okA := e.items.Index(a)
	j, okB := e.items.Index(b)
	if !okA || !okB {
		return 0, false, nil
	}
	return e.similarity.At(i, j), true, nil
}

// SimilarityDense 返回相似度矩阵的稠密副本（行列均按物品下标），仅用于调试与小规模校验。
// 没有物品时返回 nil。
func (e *ItemCF) SimilarityDense() (*mat.Dense, error) {
	if !e.trained {
		return nil, fmt.Errorf("similarity dense: %w", core.ErrNotTrained)
	}
	return e.similarity.ToDense(), nil
}

// ItemIDs 按下标顺序返回所有物品标识。
func (e *ItemCF) ItemIDs() []string {
	if e.items == nil {
		return nil
	}
	return e.items.IDs()
}

// UserIDs 按下标顺序返回所有用户标识。
func (e *ItemCF) UserIDs() []string {
	if e.users == nil {
		return nil
	}
	return e.users.IDs()
}

// Label 返回物品的展示标题。
func (e *ItemCF) Label(itemID string) (string, bool) {
	if e.items == nil {
		return "", false
	}
	idx, ok := e.items.Index(itemID)
	if !ok {
		return "", false
	}
	return e.labels.Label(idx)
}

// Trained 报告引擎是否可以查询。
func (e *ItemCF) Trained() bool { return e.trained }

// Stats 返回引擎状态汇总。
func (e *ItemCF) Stats() Stats {
	s := Stats{Prepared: e.prepared, Trained: e.trained, Dropped: e.dropped}
	if e.prepared {
		s.Users = e.users.Len()
		s.Items = e.items.Len()
		s.Interactions = e.interactions.NNZ()
	}
	if e.trained {
		s.SimilarityNNZ = e.similarity.NNZ()
	}
	return s
}
