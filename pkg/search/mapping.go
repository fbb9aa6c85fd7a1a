package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

const TipType = "tip"

// BuildIndexMapping 小贴士索引：标题和正文分词，分类按关键词
func BuildIndexMapping(defaultAnalyzer string) *mapping.IndexMappingImpl {
	if defaultAnalyzer == "" {
		defaultAnalyzer = standard.Name
	}
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = defaultAnalyzer
	idx.TypeField = "type"

	text := mapping.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	text.Analyzer = defaultAnalyzer
	text.IncludeInAll = true

	kw := mapping.NewTextFieldMapping()
	kw.Store = true
	kw.Index = true
	kw.Analyzer = keyword.Name

	active := mapping.NewBooleanFieldMapping()
	active.Store = true
	active.Index = true

	tip := mapping.NewDocumentMapping()
	tip.Dynamic = false
	tip.AddFieldMappingsAt("title", text)
	tip.AddFieldMappingsAt("content", text)
	tip.AddFieldMappingsAt("category", kw)
	tip.AddFieldMappingsAt("active", active)
	idx.AddDocumentMapping(TipType, tip)

	def := mapping.NewDocumentMapping()
	def.Dynamic = false
	idx.DefaultMapping = def
	return idx
}
