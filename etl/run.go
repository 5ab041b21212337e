package etl

import (
	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/plan"
	"github.com/OmarAdellll/ETL/query"
)

// Source extracts relations from datasources and loads them back.
// Implementations live outside the engine so it stays independent of any
// particular format or backend.
type Source interface {
	Extract(source query.Datasource) (*Relation, error)
	Load(rel *Relation, dest query.Datasource) error
}

// Runner executes plans against a set of adapters
type Runner struct {
	Adapters Source
}

// NewRunner creates a runner backed by the given adapters
func NewRunner(adapters Source) *Runner {
	return &Runner{Adapters: adapters}
}

// Run executes a plan step by step and returns the final relation. The
// running relation starts with the first extract; join steps merge later
// extracts into it by ID.
func (r *Runner) Run(p *plan.Plan) (*Relation, error) {
	extracted := map[string]*Relation{}
	var current *Relation

	for _, step := range p.Steps {
		switch s := step.(type) {
		case *plan.ExtractStep:
			rel, err := r.Adapters.Extract(s.Source)
			if err != nil {
				return nil, errors.Wrapf(err, "extract %s from %s:%s", s.ID, s.Source.SourceType, s.Source.Path)
			}
			extracted[s.ID] = rel
			if current == nil {
				current = rel
			}
		case *plan.JoinStep:
			right, ok := extracted[s.RightID]
			if !ok {
				return nil, errors.Errorf("join references unknown extract %s", s.RightID)
			}
			joined, err := Join(current, right, s.LeftCol, s.RightCol, s.Kind)
			if err != nil {
				return nil, err
			}
			current = joined
		case *plan.TransformStep:
			transformed, err := Transform(current, s.Criteria)
			if err != nil {
				return nil, err
			}
			current = transformed
		case *plan.LoadStep:
			if err := r.Adapters.Load(current, s.Dest); err != nil {
				return nil, errors.Wrapf(err, "load into %s:%s", s.Dest.SourceType, s.Dest.Path)
			}
		}
	}

	if current == nil {
		return nil, ErrNilInput
	}
	return current, nil
}

// RunInsert writes literal rows straight to the target datasource. No
// plan is involved: the statement is already the relation.
func (r *Runner) RunInsert(ins *query.Insert) error {
	columns := make([]string, len(ins.Columns))
	for i, col := range ins.Columns {
		columns[i] = col.Name
	}
	rel := NewRelation(columns...)
	for _, row := range ins.Values {
		if err := rel.AppendRow(row); err != nil {
			return err
		}
	}
	return errors.Wrapf(r.Adapters.Load(rel, ins.Target), "insert into %s:%s", ins.Target.SourceType, ins.Target.Path)
}
