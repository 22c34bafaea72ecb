package weather

import "log/slog"

// Engine turns readings into safety verdicts. It holds only configuration.
type Engine struct {
	table      Table
	categories []Category
}

// NewEngine creates an engine evaluating categories against table.
func NewEngine(table Table, categories []Category) *Engine {
	return &Engine{table: table, categories: categories}
}

// Categories returns the configured categories.
func (e *Engine) Categories() []Category {
	return e.categories
}

// Evaluate classifies every category over window (oldest first, current
// reading last) and ANDs the results. With no categories configured the
// verdict is unsafe.
func (e *Engine) Evaluate(window []Reading) Verdict {
	v := Verdict{Safe: len(e.categories) > 0}
	for _, c := range e.categories {
		cond := c.Classify(window, e.table)
		if !cond.Safe {
			if cond.Value != nil {
				slog.Debug("weather: unsafe", "category", c.Kind, "label", cond.Label, "value", cond.Value.String())
			} else {
				slog.Debug("weather: unsafe", "category", c.Kind, "label", cond.Label)
			}
		}
		v.Conditions = append(v.Conditions, cond)
		v.Safe = v.Safe && cond.Safe
	}
	return v
}
