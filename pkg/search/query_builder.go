package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	q "github.com/blevesearch/bleve/v2/search/query"
)

func buildQuery(req SearchRequest, defaultFields []string) q.Query {
	var must []q.Query

	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		fields := req.SearchFields
		if len(fields) == 0 {
			fields = defaultFields
		}
		if len(fields) == 0 {
			must = append(must, bleve.NewMatchQuery(kw))
		} else {
			// 任一字段命中即可
			qs := make([]q.Query, 0, len(fields))
			for _, f := range fields {
				mq := bleve.NewMatchQuery(kw)
				mq.SetField(f)
				qs = append(qs, mq)
			}
			must = append(must, bleve.NewDisjunctionQuery(qs...))
		}
	}

	if c := strings.TrimSpace(req.Category); c != "" {
		tq := bleve.NewTermQuery(strings.ToLower(c))
		tq.SetField("category")
		must = append(must, tq)
	}

	if req.ActiveOnly {
		bq := bleve.NewBoolFieldQuery(true)
		bq.SetField("active")
		must = append(must, bq)
	}

	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}
