// Package feast 提供基于 Feast Feature Store 的兴趣画像实现。
//
// Feast 是开源的 Feature Store，在线存储面向实时读取。本包把在线特征
// 映射为 recall.InterestProvider 需要的兴趣权重，供个性化召回叠加使用。
// 画像不可用时个性化召回退化为行为亲和度 + 热度先验，不影响可用性。
package feast

import (
	"context"
	"fmt"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
)

// InterestStore 是官方 Feast Go SDK 的 gRPC 客户端封装。
//
// FeatureMap 定义在线特征到兴趣 key 的映射，例如：
//
//	{"user_profile:affinity_books": "category:books",
//	 "user_profile:affinity_sale":  "tag:sale"}
//
// 特征值要求为 double/float，权重直接透传。
type InterestStore struct {
	client *feastsdk.GrpcClient

	// Project 是 Feast 项目名
	Project string

	// EntityKey 是实体 key，默认 "user_id"
	EntityKey string

	// FeatureMap 在线特征名 -> 兴趣 key（"category:x" / "tag:y"）
	FeatureMap map[string]string

	// Timeout 单次特征读取超时，默认 500ms
	Timeout time.Duration
}

// NewInterestStore 连接 Feast Feature Server 并返回兴趣画像存储。
func NewInterestStore(host string, port int, project string, featureMap map[string]string) (*InterestStore, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &InterestStore{
		client:     client,
		Project:    project,
		EntityKey:  "user_id",
		FeatureMap: featureMap,
		Timeout:    500 * time.Millisecond,
	}, nil
}

// GetInterests 实现 recall.InterestProvider。
func (s *InterestStore) GetInterests(ctx context.Context, userID string) (map[string]float64, error) {
	if s.client == nil || len(s.FeatureMap) == 0 || userID == "" {
		return nil, nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	features := make([]string, 0, len(s.FeatureMap))
	for name := range s.FeatureMap {
		features = append(features, name)
	}

	entityKey := s.EntityKey
	if entityKey == "" {
		entityKey = "user_id"
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: []feastsdk.Row{{entityKey: feastsdk.StrVal(userID)}},
		Project:  s.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, nil
	}

	interests := make(map[string]float64, len(s.FeatureMap))
	row := rows[0]
	for featureName, interestKey := range s.FeatureMap {
		val, ok := row[featureName]
		if !ok || val == nil {
			continue
		}
		if w, ok := numericValue(val); ok && w > 0 {
			interests[interestKey] = w
		}
	}
	return interests, nil
}

// Close 释放客户端；官方 SDK 的 gRPC 连接由库管理，这里只断引用。
func (s *InterestStore) Close() error {
	s.client = nil
	return nil
}

// numericValue 从 SDK 的 Value 提取数值特征。
func numericValue(v *feasttypes.Value) (float64, bool) {
	switch val := v.Val.(type) {
	case *feasttypes.Value_DoubleVal:
		return val.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(val.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(val.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(val.Int32Val), true
	default:
		return 0, false
	}
}
