package filter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/itemcf/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品。
//
// 黑名单来自内存列表，以及（可选）Store 中 Key 对应的 JSON 字符串数组。
// Store 中的 key 不存在视为空黑名单。
// 在 FilterNode 中使用时，Store 黑名单每个请求只读取一次（见 Prepare）。
type BlacklistFilter struct {
	items map[string]struct{}

	// Store 用于从存储中读取黑名单（可选）
	Store core.Store

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs []string, s core.Store, key string) *BlacklistFilter {
	items := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		items[id] = struct{}{}
	}
	return &BlacklistFilter{items: items, Store: s, Key: key}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

// Prepare 读取 Store 黑名单并与内存列表合并，返回只在本次请求内使用的过滤器。
func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	if f.Store == nil || f.Key == "" {
		return f, nil
	}
	blacklist, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	items := make(map[string]struct{}, len(f.items)+len(blacklist))
	for id := range f.items {
		items[id] = struct{}{}
	}
	for _, id := range blacklist {
		items[id] = struct{}{}
	}
	return &BlacklistFilter{items: items}, nil
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.items[item.ID]; ok {
		return true, nil
	}

	if f.Store == nil || f.Key == "" {
		return false, nil
	}
	blacklist, err := f.load(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range blacklist {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *BlacklistFilter) load(ctx context.Context) ([]string, error) {
	raw, err := f.Store.Get(ctx, f.Key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode blacklist %s: %w", f.Key, err)
	}
	return ids, nil
}
