package query

import (
	"fmt"

	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

const facetBucketSize = 1000

// BuildFacets returns an aggregation-only _search body: a terms aggregation
// per facet, plus <name>_min and <name>_max for date facets.
func (b *Builder) BuildFacets(types model.TypeList, facets []model.FacetSpec) (map[string]interface{}, error) {
	aggs := obj{}
	for _, f := range facets {
		if f.Name == "" || f.Field == "" {
			return nil, util.ErrQueryInvalid.Wrap(fmt.Errorf("facet needs a name and a field"))
		}
		aggs[f.Name] = obj{"terms": obj{
			"field": f.Field,
			"size":  facetBucketSize,
			"order": obj{"_key": "asc"},
		}}

		switch f.Kind {
		case "", model.FacetKeyword:
		case model.FacetDate:
			aggs[f.Name+"_min"] = obj{"min": obj{"field": f.Field}}
			aggs[f.Name+"_max"] = obj{"max": obj{"field": f.Field}}
		default:
			return nil, util.ErrQueryInvalid.Wrap(fmt.Errorf("facet %q: unknown kind %q", f.Name, f.Kind))
		}
	}

	return obj{
		"size":  0,
		"query": b.restrictTypes(obj{"match_all": obj{}}, types),
		"aggs":  aggs,
	}, nil
}
