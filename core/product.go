package core

// Product 是商品目录返回的展示数据，用于与分数做 join。
// 引擎只消费不维护；缺失/下架/无库存的商品在 join 时被静默丢弃。
type Product struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Tags     []string          `json:"tags,omitempty"`
	Price    float64           `json:"price"`
	ImageURL string            `json:"image_url,omitempty"`
	Stock    int64             `json:"stock"`
	IsActive bool              `json:"is_active"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Sellable 判断商品是否可以出现在推荐结果里。
func (p *Product) Sellable() bool {
	return p != nil && p.IsActive && p.Stock > 0
}
