package model

import "github.com/rushteam/itemcf/core"

// UnknownLabel 是从未出现过非空标题的物品所使用的占位标题。
const UnknownLabel = "Unknown Title"

// IDMap 是外部标识与稠密下标 [0, n) 之间的双射。
// 下标按首次出现顺序分配，构建后不可变。
type IDMap struct {
	index map[string]int
	ids   []string
}

func newIDMap() *IDMap {
	return &IDMap{index: make(map[string]int)}
}

// NewIDMap 按首次出现顺序为 ids 分配下标，重复标识只保留第一次。
func NewIDMap(ids []string) *IDMap {
	m := newIDMap()
	for _, id := range ids {
		m.add(id)
	}
	return m
}

func (m *IDMap) add(id string) int {
	if idx, ok := m.index[id]; ok {
		return idx
	}
	idx := len(m.ids)
	m.index[id] = idx
	m.ids = append(m.ids, id)
	return idx
}

// Index 返回标识对应的下标。
func (m *IDMap) Index(id string) (int, bool) {
	idx, ok := m.index[id]
	return idx, ok
}

// ID 返回下标对应的标识。
func (m *IDMap) ID(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.ids) {
		return "", false
	}
	return m.ids[idx], true
}

// Len 返回不同标识的数量。
func (m *IDMap) Len() int { return len(m.ids) }

// IDs 按下标顺序返回所有标识的副本。
func (m *IDMap) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// LabelTable 是物品下标到展示标题的映射。
type LabelTable struct {
	labels []string
}

// Label 返回下标对应的标题。
func (t *LabelTable) Label(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.labels) {
		return "", false
	}
	return t.labels[idx], true
}

// Len 返回标题数量（等于物品数量）。
func (t *LabelTable) Len() int { return len(t.labels) }

// buildIndex 一次遍历构建用户映射、物品映射和标题表。
// 标题取该物品最后一次出现的非空标题；从未出现非空标题的物品使用 UnknownLabel。
func buildIndex(rows []core.Interaction) (users, items *IDMap, labels *LabelTable) {
	users, items = newIDMap(), newIDMap()
	var titles []string
	for _, r := range rows {
		users.add(r.UserID)
		idx := items.add(r.ItemID)
		if idx == len(titles) {
			titles = append(titles, "")
		}
		if r.Label != "" {
			titles[idx] = r.Label
		}
	}
	for i, title := range titles {
		if title == "" {
			titles[i] = UnknownLabel
		}
	}
	return users, items, &LabelTable{labels: titles}
}
