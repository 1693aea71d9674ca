package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rushteam/shoprec/core"
)

// ActivityAdapter 将 core.Store 适配为 ActivityStore。
//
// 存储布局：按天分桶的 JSON 事件数组
//   - activity:{yyyy-mm-dd} -> []ActivityEvent
//
// 聚合查询只读 since..today 的桶，key 数量与窗口天数成正比。
// RecordEvent 是演示/回放用的单写者入口，高并发摄取应直接写底层存储。
type ActivityAdapter struct {
	store core.Store

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

// NewActivityAdapter 创建一个 KV 后端的 ActivityStore。
func NewActivityAdapter(s core.Store) *ActivityAdapter {
	return &ActivityAdapter{store: s}
}

var _ core.ActivityStore = (*ActivityAdapter)(nil)

const activityKeyPrefix = "activity:"

// CountEventsByProduct 统计 since 之后每个商品的事件数。
func (a *ActivityAdapter) CountEventsByProduct(ctx context.Context, since time.Time) (map[string]int64, error) {
	events, err := a.loadSince(ctx, since)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(events))
	for _, ev := range events {
		if ev.Timestamp.Before(since) {
			continue
		}
		counts[ev.ProductID]++
	}
	return counts, nil
}

// ListEventsForSubject 列出某个身份 since 之后的行为日志。
func (a *ActivityAdapter) ListEventsForSubject(ctx context.Context, subjectID string, since time.Time) ([]*core.ActivityEvent, error) {
	from := since
	if from.IsZero() {
		// 无窗口时回看 90 天，避免扫描无限多的天桶
		from = a.now().AddDate(0, 0, -90)
	}
	events, err := a.loadSince(ctx, from)
	if err != nil {
		return nil, err
	}
	out := make([]*core.ActivityEvent, 0, len(events))
	for _, ev := range events {
		if ev.SubjectID != subjectID {
			continue
		}
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// RecordEvent 追加一条行为日志到当天的桶。
func (a *ActivityAdapter) RecordEvent(ctx context.Context, ev *core.ActivityEvent) error {
	if ev == nil || ev.ProductID == "" {
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = a.now()
	}
	key := activityKeyPrefix + ev.Timestamp.Format("2006-01-02")

	var events []*core.ActivityEvent
	if data, err := a.store.Get(ctx, key); err == nil {
		_ = json.Unmarshal(data, &events)
	} else if !core.IsStoreNotFound(err) {
		return err
	}
	events = append(events, ev)

	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

// loadSince 读取 since..today 所有天桶并合并。
func (a *ActivityAdapter) loadSince(ctx context.Context, since time.Time) ([]*core.ActivityEvent, error) {
	now := a.now()
	if since.After(now) {
		return nil, nil
	}

	keys := make([]string, 0, 8)
	for day := since.Truncate(24 * time.Hour); !day.After(now); day = day.AddDate(0, 0, 1) {
		keys = append(keys, activityKeyPrefix+day.Format("2006-01-02"))
	}

	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*core.ActivityEvent, 0, 64)
	for _, key := range keys {
		data, ok := kvs[key]
		if !ok {
			continue
		}
		var events []*core.ActivityEvent
		if err := json.Unmarshal(data, &events); err != nil {
			continue
		}
		out = append(out, events...)
	}
	return out, nil
}

func (a *ActivityAdapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
