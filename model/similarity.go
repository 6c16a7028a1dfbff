package model

import (
	"slices"

	"github.com/rushteam/itemcf/sparse"
)

// cosineItemSimilarity 计算 users×items 交互矩阵各物品列之间的余弦相似度，
// 返回 items×items 稀疏矩阵。
//
// 做法是稀疏 X·Xᵀ（X 为 items×users）：对物品 i 的每个评分用户 u，
// 把 u 评过的所有物品 j 的 r(u,i)·r(u,j) 累加到 acc[j]。
// 用户按下标升序遍历，因此 (i,j) 与 (j,i) 的累加序列完全相同，结果逐位对称。
// 范数为 0 的物品整行为空，即与任何物品相似度为 0。
func cosineItemSimilarity(userItem *sparse.CSR) *sparse.CSR {
	itemUser := userItem.Transpose()
	n, _ := itemUser.Shape()
	norms := itemUser.RowNorms()

	b := sparse.NewBuilder(n, n)
	acc := make([]float64, n)
	marked := make([]bool, n)
	touched := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if norms[i] == 0 {
			continue
		}
		users, ratings := itemUser.Row(i)
		touched = touched[:0]
		for k, u := range users {
			items, vals := userItem.Row(u)
			for l, j := range items {
				if !marked[j] {
					marked[j] = true
					touched = append(touched, j)
				}
				acc[j] += ratings[k] * vals[l]
			}
		}
		slices.Sort(touched)
		for _, j := range touched {
			if dot := acc[j]; dot != 0 && norms[j] != 0 {
				_ = b.Add(i, j, dot/(norms[i]*norms[j]))
			}
			acc[j] = 0
			marked[j] = false
		}
	}
	return b.Build()
}
