package dataprocessing

import (
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// BuildAnalysisResults assembles the two-key JSON summary: the correlation
// matrix over all numeric columns and the raw return values in row order,
// NaN included. A table without returnColumn yields an empty list.
func BuildAnalysisResults(t *table.Table, returnColumn string) domain.AnalysisResults {
	results := domain.AnalysisResults{
		CorrelationHeatmap: CorrelationMatrix(t),
		ReturnDistribution: []domain.Float{},
	}
	if returns, ok := t.Floats(returnColumn); ok {
		results.ReturnDistribution = domain.Floats(returns)
	}
	return results
}
