package sparse

import (
	"cmp"
	"fmt"
	"slices"
)

type triplet struct {
	row, col int
	val      float64
}

// Builder 以 COO 方式累积 (row, col, value) 三元组，最后一次性构建 CSR。
//
// 重复项策略：同一 (row, col) 出现多次时按输入顺序求和。
// 例如同一用户对同一物品先后评分 3 与 5，结果为 8。
type Builder struct {
	rows, cols int
	entries    []triplet
}

// NewBuilder 创建 rows×cols 的构建器。
func NewBuilder(rows, cols int) *Builder {
	return &Builder{rows: rows, cols: cols}
}

// Grow 预分配 n 个三元组的容量。
func (b *Builder) Grow(n int) {
	b.entries = slices.Grow(b.entries, n)
}

// Add 记录一个三元组；下标越界时返回错误且不记录。
func (b *Builder) Add(row, col int, val float64) error {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return fmt.Errorf("sparse: index (%d, %d) out of range for shape (%d, %d)", row, col, b.rows, b.cols)
	}
	b.entries = append(b.entries, triplet{row: row, col: col, val: val})
	return nil
}

// Len 返回已记录的三元组数量（含重复项）。
func (b *Builder) Len() int { return len(b.entries) }

// Build 构建 CSR。稳定排序保证重复项的求和顺序与输入顺序一致。
func (b *Builder) Build() *CSR {
	byPos := func(x, y triplet) int {
		if c := cmp.Compare(x.row, y.row); c != 0 {
			return c
		}
		return cmp.Compare(x.col, y.col)
	}
	entries := slices.Clone(b.entries)
	if !slices.IsSortedFunc(entries, byPos) {
		slices.SortStableFunc(entries, byPos)
	}

	m := Empty(b.rows, b.cols)
	m.indices = make([]int, 0, len(entries))
	m.data = make([]float64, 0, len(entries))
	last := -1
	for _, e := range entries {
		if n := len(m.indices); n > 0 && last == e.row && m.indices[n-1] == e.col {
			m.data[n-1] += e.val
			continue
		}
		m.indices = append(m.indices, e.col)
		m.data = append(m.data, e.val)
		m.indptr[e.row+1]++
		last = e.row
	}
	for i := 0; i < b.rows; i++ {
		m.indptr[i+1] += m.indptr[i]
	}
	return m
}
