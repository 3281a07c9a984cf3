package planlimits

// LimitChange is the old and new value of one metric.
type LimitChange struct {
	From Limit `json:"from"`
	To   Limit `json:"to"`
}

// Comparison lists metric changes when moving between two plans.
type Comparison struct {
	Increased map[Metric]LimitChange `json:"increased"`
	Decreased map[Metric]LimitChange `json:"decreased"`
}

// IsDowngrade reports whether any metric loses capacity.
func (c Comparison) IsDowngrade() bool {
	return len(c.Decreased) > 0
}

// CompareLimits returns the per-metric differences from current to target.
// Going from unlimited to any finite value is a decrease.
func CompareLimits(current, target Limits) Comparison {
	c := Comparison{
		Increased: make(map[Metric]LimitChange),
		Decreased: make(map[Metric]LimitChange),
	}
	for _, m := range Metrics() {
		from, _ := current.Get(m)
		to, _ := target.Get(m)
		switch {
		case to.Less(from):
			c.Decreased[m] = LimitChange{From: from, To: to}
		case from.Less(to):
			c.Increased[m] = LimitChange{From: from, To: to}
		}
	}
	return c
}

// CompareTiers compares the limits of two plans.
func CompareTiers(current, target Plan) Comparison {
	return CompareLimits(current.Limits, target.Limits)
}
