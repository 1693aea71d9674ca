package core

// Page 是混合流的分页结果。
// 不变式：同一页内 ProductID 不重复；连续两页（同身份同参数）不相交。
type Page struct {
	Items      []*Item `json:"items"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
}

// NewPage 根据总量计算分页元信息。page 从 1 开始。
func NewPage(items []*Item, page, limit, total int) *Page {
	if limit <= 0 {
		limit = 1
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + limit - 1) / limit
	return &Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
