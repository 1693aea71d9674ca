package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprec/core"
)

// SignalAdapter 将 core.KeyValueStore 适配为 SignalStore。
//
// 存储布局：
//   - signal:{productID}     -> JSON 序列化的 ProductSignal
//   - signal:active          -> 在售商品 ID 集合（Set）
//
// 计数由外部交互链路写入（PutSignal 供回放/演示/测试用），
// 本引擎只走读路径。
type SignalAdapter struct {
	store core.KeyValueStore
}

// NewSignalAdapter 创建一个 KV 后端的 SignalStore。
func NewSignalAdapter(s core.KeyValueStore) *SignalAdapter {
	return &SignalAdapter{store: s}
}

var _ core.SignalStore = (*SignalAdapter)(nil)

const (
	signalKeyPrefix = "signal:"
	signalActiveKey = "signal:active"
)

// ListActiveProductSignals 列出所有在售商品的计数快照。
func (a *SignalAdapter) ListActiveProductSignals(ctx context.Context) ([]*core.ProductSignal, error) {
	ids, err := a.store.SMembers(ctx, signalActiveKey)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, signalKeyPrefix+id)
	}
	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*core.ProductSignal, 0, len(ids))
	for _, id := range ids {
		data, ok := kvs[signalKeyPrefix+id]
		if !ok {
			continue
		}
		var sig core.ProductSignal
		if err := json.Unmarshal(data, &sig); err != nil {
			// 坏数据跳过，不拖垮整个列表
			continue
		}
		if !sig.IsActive {
			continue
		}
		out = append(out, &sig)
	}
	return out, nil
}

// GetProductSignal 读取单个商品的计数快照。
func (a *SignalAdapter) GetProductSignal(ctx context.Context, productID string) (*core.ProductSignal, error) {
	data, err := a.store.Get(ctx, signalKeyPrefix+productID)
	if err != nil {
		return nil, err
	}
	var sig core.ProductSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// PutSignal 写入计数快照并维护在售集合。
func (a *SignalAdapter) PutSignal(ctx context.Context, sig *core.ProductSignal) error {
	if sig == nil || sig.ProductID == "" {
		return nil
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, signalKeyPrefix+sig.ProductID, data); err != nil {
		return err
	}
	if sig.IsActive {
		return a.store.SAdd(ctx, signalActiveKey, []string{sig.ProductID})
	}
	return nil
}
