package narrative

import (
	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// SummaryPayload carries the statistics table of ds.
func SummaryPayload(ds *dataset.Dataset, stats []analysis.ColumnStats) Payload {
	return Payload{Dataset: ds.Name, Stats: analysis.StatsTable(stats)}
}

// QuestionPayload carries the statistics table plus the operator's question.
func QuestionPayload(ds *dataset.Dataset, stats []analysis.ColumnStats, question string) Payload {
	p := SummaryPayload(ds, stats)
	p.Question = question
	return p
}

// CorrelationPayload carries the correlation matrix as a text table.
func CorrelationPayload(ds *dataset.Dataset, m *analysis.CorrMatrix) Payload {
	p := Payload{Dataset: ds.Name}
	if m != nil {
		p.Correlation = m.Table()
	}
	return p
}

// AdvicePayload carries one column's statistics.
func AdvicePayload(ds *dataset.Dataset, cs analysis.ColumnStats) Payload {
	return Payload{Dataset: ds.Name, Column: cs.Name, ColumnStats: analysis.ColumnBlock(cs)}
}

// AnomalyPayload carries the anomaly list and the band width k they were
// detected with.
func AnomalyPayload(ds *dataset.Dataset, anoms []analysis.Anomaly, k float64) Payload {
	return Payload{Dataset: ds.Name, Anomalies: analysis.AnomalyLines(anoms), BandWidth: k}
}
