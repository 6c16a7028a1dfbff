// Package store 提供 core.Store 的实现：
//   - MemoryStore：测试 / 单机
//   - BadgerStore：单机持久化
//   - RedisStore：生产
//   - BreakerStore：给远端存储加熔断
//
// 接口定义在 core 包：
//
//	var s core.Store = store.NewMemoryStore()
package store
