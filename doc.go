// Package itemcf 是基于物品的协同过滤推荐引擎（Item-based Collaborative Filtering）。
//
// 设计要点：
//   - 核心引擎（model.ItemCF）只做三件事：标识映射、稀疏交互矩阵、物品余弦相似度；不读文件、不访问存储
//   - 数据接入（data）与在线链路（recall / filter / rerank / pipeline）在核心之外，通过接口组合
//   - Labels-first：召回来源等 labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
package itemcf

import (
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/pipeline"
)

// 轻量 facade：便于用户直接 import "github.com/rushteam/itemcf" 使用核心抽象。
type (
	ItemCF   = model.ItemCF
	Neighbor = model.Neighbor
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind
)

// NewItemCF 创建一个未准备的引擎，见 model.NewItemCF。
func NewItemCF(opts ...model.Option) *ItemCF {
	return model.NewItemCF(opts...)
}

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
