package recall

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/model"
)

// DefaultKeyPrefix 是已发布 i2i 列表的默认 key 前缀：{prefix}:{itemID}。
const DefaultKeyPrefix = "i2i"

// NeighborRecord 是存储中 i2i 列表的单条记录（JSON）。
type NeighborRecord struct {
	ItemID string  `json:"item_id"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

// NeighborIndex 是发布所需的引擎能力，model.ItemCF 实现了它。
type NeighborIndex interface {
	NeighborFinder
	ItemIDs() []string
}

// Publisher 把训练好的每个物品的 TopN 邻居写入 Store，供在线 StoreI2I 召回读取。
type Publisher struct {
	Store     core.Store
	KeyPrefix string // 默认 DefaultKeyPrefix
	TopN      int    // <= 0 时使用 model.DefaultTopN
	TTL       int    // 秒，0 表示不过期
	BatchSize int    // 每次 BatchSet 的 key 数，默认 500
	Workers   int    // 并发写入批次数，默认 4
}

// ItemKey 返回物品的 i2i 列表 key。
func ItemKey(prefix, itemID string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + ":" + itemID
}

// Publish 写入所有物品的邻居列表，返回写入的 key 数。
func (p *Publisher) Publish(ctx context.Context, engine NeighborIndex) (int, error) {
	if p.Store == nil {
		return 0, fmt.Errorf("publish: store not set")
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	workers := p.Workers
	if workers <= 0 {
		workers = 4
	}

	ids := engine.ItemIDs()
	batches := make([]map[string][]byte, 0, len(ids)/batchSize+1)
	cur := make(map[string][]byte, min(batchSize, len(ids)))
	for _, id := range ids {
		neighbors, found, err := engine.Neighbors(id, p.TopN)
		if err != nil {
			return 0, fmt.Errorf("publish %s: %w", id, err)
		}
		if !found {
			continue
		}
		payload, err := json.Marshal(toRecords(neighbors))
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", id, err)
		}
		cur[ItemKey(p.KeyPrefix, id)] = payload
		if len(cur) == batchSize {
			batches = append(batches, cur)
			cur = make(map[string][]byte, batchSize)
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	written := 0
	for _, batch := range batches {
		written += len(batch)
		eg.Go(func() error {
			return p.Store.BatchSet(egCtx, batch, p.TTL)
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, fmt.Errorf("publish to %s: %w", p.Store.Name(), err)
	}
	return written, nil
}

// toRecords 只保留正相似度的邻居，补齐用的 0 分项不发布。
func toRecords(neighbors []model.Neighbor) []NeighborRecord {
	out := make([]NeighborRecord, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.Score <= 0 {
			continue
		}
		out = append(out, NeighborRecord{ItemID: nb.ItemID, Label: nb.Label, Score: nb.Score})
	}
	return out
}
