package qdrant

import (
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// convertFilter translates a vectordb.Filter into a Qdrant filter, nil when empty.
func convertFilter(f *vectordb.Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	out := &qdrant.Filter{
		Must:    convertConditions(f.Must),
		MustNot: convertConditions(f.MustNot),
	}
	if len(out.Must) == 0 && len(out.MustNot) == 0 {
		return nil
	}
	return out
}

func convertConditions(conditions []vectordb.Condition) []*qdrant.Condition {
	var out []*qdrant.Condition
	for _, c := range conditions {
		if qc := convertCondition(c); qc != nil {
			out = append(out, qc)
		}
	}
	return out
}

func convertCondition(c vectordb.Condition) *qdrant.Condition {
	switch cond := c.(type) {
	case vectordb.MatchCondition:
		return qdrant.NewMatch(cond.Field, cond.Value)
	case vectordb.MatchAnyCondition:
		if len(cond.Values) == 0 {
			return nil
		}
		return qdrant.NewMatchKeywords(cond.Field, cond.Values...)
	case vectordb.TextCondition:
		return qdrant.NewMatchText(cond.Field, cond.Text)
	case vectordb.RangeCondition:
		r := cond.Range
		if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
			return nil
		}
		return qdrant.NewRange(cond.Field, &qdrant.Range{Gt: r.Gt, Gte: r.Gte, Lt: r.Lt, Lte: r.Lte})
	case vectordb.TimeRangeCondition:
		r := cond.Range
		if r.Gte == nil && r.Lte == nil {
			return nil
		}
		dr := &qdrant.DatetimeRange{}
		if r.Gte != nil {
			dr.Gte = timestamppb.New(*r.Gte)
		}
		if r.Lte != nil {
			dr.Lte = timestamppb.New(*r.Lte)
		}
		return qdrant.NewDatetimeRange(cond.Field, dr)
	default:
		return nil
	}
}
