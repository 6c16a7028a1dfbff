// Package sparse 提供推荐引擎使用的稀疏矩阵：COO 方式累积三元组，构建为 CSR。
//
// CSR 构建完成后不可变；行内列下标严格升序，便于二分查找与归并遍历。
// 列访问通过 Transpose 一次性转置后按行读取。
package sparse

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CSR 是压缩稀疏行（Compressed Sparse Row）矩阵。
// 只存储非缺省项；缺省项视为 0。
type CSR struct {
	rows, cols int
	indptr     []int // len = rows+1
	indices    []int
	data       []float64
}

// Empty 返回 rows×cols 的空矩阵。
func Empty(rows, cols int) *CSR {
	return &CSR{
		rows:   rows,
		cols:   cols,
		indptr: make([]int, rows+1),
	}
}

// Shape 返回 (行数, 列数)。
func (m *CSR) Shape() (int, int) { return m.rows, m.cols }

// NNZ 返回存储的非零项数。
func (m *CSR) NNZ() int { return len(m.data) }

// Row 返回第 i 行的列下标与值（升序）。
// 返回的切片与矩阵共享底层存储，调用方不得修改。
func (m *CSR) Row(i int) ([]int, []float64) {
	if i < 0 || i >= m.rows {
		return nil, nil
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi:hi], m.data[lo:hi:hi]
}

// RowNNZ 返回第 i 行的非零项数。
func (m *CSR) RowNNZ(i int) int {
	if i < 0 || i >= m.rows {
		return 0
	}
	return m.indptr[i+1] - m.indptr[i]
}

// At 返回 (i, j) 的值，缺省项返回 0。
func (m *CSR) At(i, j int) float64 {
	v, _ := m.Lookup(i, j)
	return v
}

// Lookup 返回 (i, j) 的值以及该项是否被存储。
func (m *CSR) Lookup(i, j int) (float64, bool) {
	cols, vals := m.Row(i)
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return vals[k], true
	}
	return 0, false
}

// Col 返回第 j 列的行下标与值（升序），每行二分查找一次。
// 需要频繁按列访问时，应先 Transpose 再按行读取。
func (m *CSR) Col(j int) ([]int, []float64) {
	if j < 0 || j >= m.cols {
		return nil, nil
	}
	var rows []int
	var vals []float64
	for i := 0; i < m.rows; i++ {
		if v, ok := m.Lookup(i, j); ok {
			rows = append(rows, i)
			vals = append(vals, v)
		}
	}
	return rows, vals
}

// Transpose 返回转置矩阵（cols×rows）。计数排序，结果行内下标升序。
func (m *CSR) Transpose() *CSR {
	t := &CSR{
		rows:    m.cols,
		cols:    m.rows,
		indptr:  make([]int, m.cols+1),
		indices: make([]int, len(m.indices)),
		data:    make([]float64, len(m.data)),
	}
	for _, j := range m.indices {
		t.indptr[j+1]++
	}
	for j := 0; j < m.cols; j++ {
		t.indptr[j+1] += t.indptr[j]
	}
	next := make([]int, m.cols)
	copy(next, t.indptr[:m.cols])
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			j := m.indices[k]
			pos := next[j]
			t.indices[pos] = i
			t.data[pos] = m.data[k]
			next[j]++
		}
	}
	return t
}

// RowNorms 返回每一行的 L2 范数；空行为 0。
func (m *CSR) RowNorms() []float64 {
	norms := make([]float64, m.rows)
	for i := range norms {
		if _, vals := m.Row(i); len(vals) > 0 {
			norms[i] = floats.Norm(vals, 2)
		}
	}
	return norms
}

// ToDense 将矩阵展开为 gonum 稠密矩阵，仅用于调试与小规模校验。
// 任一维度为 0 时返回 nil（gonum 不支持零尺寸矩阵）。
func (m *CSR) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			d.Set(i, j, vals[k])
		}
	}
	return d
}
