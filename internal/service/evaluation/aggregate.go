package evaluation

// Summary bundles metric results with their aggregates.
type Summary struct {
	Results  []Result `json:"results"`
	Weighted float64  `json:"weighted"`
	Equal    float64  `json:"equal"`
}

// Summarize aggregates normalized values.
func Summarize(results []Result) Summary {
	return Summary{
		Results:  results,
		Weighted: WeightedAverage(results, false),
		Equal:    EqualAverage(results, false),
	}
}

// WeightedAverage is sum(weight*value)/sum(weight). It returns 0 when the
// weights add up to zero.
func WeightedAverage(results []Result, useRaw bool) float64 {
	var sum, total float64
	for _, r := range results {
		sum += r.Weight * pick(r, useRaw)
		total += r.Weight
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// EqualAverage is the arithmetic mean, 0 for no results.
func EqualAverage(results []Result, useRaw bool) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += pick(r, useRaw)
	}
	return sum / float64(len(results))
}

func pick(r Result, useRaw bool) float64 {
	if useRaw {
		return r.RawValue
	}
	return r.Value
}
