package search

import "time"

type Config struct {
	IndexPath           string // 为空时使用内存索引
	DefaultAnalyzer     string
	DefaultSearchFields []string
	QueryTimeout        time.Duration
	BatchSize           int
}

type Doc struct {
	ID     string
	Type   string
	Fields map[string]any
}

// SearchRequest 环保小贴士检索条件
type SearchRequest struct {
	Keyword      string
	SearchFields []string
	Category     string // 精确匹配分类
	ActiveOnly   bool
	From         int
	Size         int
	Facets       []FacetRequest
}

type FacetRequest struct {
	Name  string
	Field string
	Size  int
}

type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type FacetTerm struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

type FacetResult struct {
	Total int         `json:"total"`
	Terms []FacetTerm `json:"terms"`
}

type SearchResult struct {
	Total  uint64                 `json:"total"`
	Took   time.Duration          `json:"took"`
	Hits   []Hit                  `json:"hits"`
	Facets map[string]FacetResult `json:"facets,omitempty"`
}
