// Package plan turns parsed statements into structured execution plans.
// A plan is an ordered list of steps: extracts first, then joins, one
// transform, and an optional load.
package plan

import (
	"fmt"

	"github.com/OmarAdellll/ETL/query"
)

// Step is one unit of work in an execution plan
type Step interface {
	step()
}

// ExtractStep reads a relation from a datasource
type ExtractStep struct {
	ID     string
	Source query.Datasource
}

// JoinStep merges the relation named by RightID into the running relation
type JoinStep struct {
	Kind     string
	LeftCol  query.ColumnRef
	RightCol query.ColumnRef
	RightID  string
}

// TransformStep applies the select criteria to the running relation
type TransformStep struct {
	Criteria Criteria
}

// LoadStep writes the running relation to a datasource
type LoadStep struct {
	Dest query.Datasource
}

func (*ExtractStep) step()   {}
func (*JoinStep) step()      {}
func (*TransformStep) step() {}
func (*LoadStep) step()      {}

// Criteria bundles every clause the transform stage needs.
type Criteria struct {
	Columns     query.SelectColumns
	Distinct    bool
	Filter      query.Condition
	GroupBy     []query.ColumnRef
	OrderBy     *query.OrderByNode
	LimitOrTail *query.LimitNode
}

// Plan is an ordered list of steps plus the alias table used to build it
type Plan struct {
	Steps   []Step
	Aliases map[string]string
}

// DuplicateAliasError reports two datasources bound to the same alias.
type DuplicateAliasError struct {
	Alias string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("duplicate datasource alias %q", e.Alias)
}

// CompositeOnConditionError reports a join condition that is not a single
// column equality.
type CompositeOnConditionError struct {
	Detail string
}

func (e *CompositeOnConditionError) Error() string {
	return fmt.Sprintf("join condition must be a single column equality: %s", e.Detail)
}

// UnknownAliasError reports a qualifier that names no datasource.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown datasource alias %q", e.Alias)
}

// UnsupportedStatementError reports a statement kind no plan can be built
// for.
type UnsupportedStatementError struct {
	Kind string
}

func (e *UnsupportedStatementError) Error() string {
	return fmt.Sprintf("cannot build a plan for %s statements", e.Kind)
}

// Build constructs an execution plan for a SELECT statement. Extract steps
// come first, in source order, with IDs extract_0, extract_1 and so on.
// Join steps follow, left to right, then a single transform step and, when
// the statement has an INTO clause, a load step.
func Build(sel *query.Select) (*Plan, error) {
	p := &Plan{Aliases: map[string]string{}}

	addExtract := func(source query.Datasource, alias string) (string, error) {
		id := fmt.Sprintf("extract_%d", len(p.Steps))
		if alias != "" {
			if _, exists := p.Aliases[alias]; exists {
				return "", &DuplicateAliasError{Alias: alias}
			}
			p.Aliases[alias] = id
		}
		p.Steps = append(p.Steps, &ExtractStep{ID: id, Source: source})
		return id, nil
	}

	if _, err := addExtract(sel.Source, sel.Alias); err != nil {
		return nil, err
	}
	joinIDs := make([]string, len(sel.Joins))
	for i, join := range sel.Joins {
		id, err := addExtract(join.Source, join.Alias)
		if err != nil {
			return nil, err
		}
		joinIDs[i] = id
	}

	for i, join := range sel.Joins {
		step, err := buildJoinStep(join, joinIDs[i], p.Aliases)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}

	criteria, err := buildCriteria(sel, p.Aliases)
	if err != nil {
		return nil, err
	}
	p.Steps = append(p.Steps, &TransformStep{Criteria: criteria})

	if sel.Into != nil {
		p.Steps = append(p.Steps, &LoadStep{Dest: *sel.Into})
	}
	return p, nil
}

// buildJoinStep validates a join clause and lowers it to a step. The ON
// condition must be exactly one equality between named columns. When the
// left reference is qualified with the joined source's alias the key pair
// is swapped so LeftCol always belongs to the running relation.
func buildJoinStep(join query.JoinClause, rightID string, aliases map[string]string) (*JoinStep, error) {
	eq, ok := join.On.(*query.EqualityCondition)
	if !ok {
		return nil, &CompositeOnConditionError{Detail: "AND/OR of equalities is not supported"}
	}
	if eq.Left.Kind == query.ColumnIndex || eq.Right.Kind == query.ColumnIndex {
		return nil, &CompositeOnConditionError{Detail: "positional column references are not allowed in ON"}
	}
	for _, ref := range []query.ColumnRef{eq.Left, eq.Right} {
		if ref.Qualifier != "" {
			if _, ok := aliases[ref.Qualifier]; !ok {
				return nil, &UnknownAliasError{Alias: ref.Qualifier}
			}
		}
	}

	left, right := eq.Left, eq.Right
	if join.Alias != "" && left.Qualifier == join.Alias {
		left, right = right, left
	}
	left.Qualifier = ""
	right.Qualifier = ""

	return &JoinStep{
		Kind:     join.Type.Kind(),
		LeftCol:  left,
		RightCol: right,
		RightID:  rightID,
	}, nil
}

// buildCriteria validates qualifiers throughout the select clauses and
// strips them, leaving bare references for the transform stage.
func buildCriteria(sel *query.Select, aliases map[string]string) (Criteria, error) {
	check := func(ref query.ColumnRef) error {
		if ref.Qualifier == "" {
			return nil
		}
		if _, ok := aliases[ref.Qualifier]; !ok {
			return &UnknownAliasError{Alias: ref.Qualifier}
		}
		return nil
	}
	strip := func(ref query.ColumnRef) (query.ColumnRef, error) {
		if err := check(ref); err != nil {
			return query.ColumnRef{}, err
		}
		ref.Qualifier = ""
		return ref, nil
	}

	c := Criteria{
		Distinct:    sel.Distinct,
		LimitOrTail: sel.LimitOrTail,
	}

	if sel.Columns.All {
		c.Columns = query.SelectColumns{All: true}
	} else {
		for _, item := range sel.Columns.Items {
			switch col := item.(type) {
			case query.ColumnRef:
				stripped, err := strip(col)
				if err != nil {
					return Criteria{}, err
				}
				c.Columns.Items = append(c.Columns.Items, stripped)
			case query.Aggregation:
				stripped, err := strip(col.Column)
				if err != nil {
					return Criteria{}, err
				}
				col.Column = stripped
				c.Columns.Items = append(c.Columns.Items, col)
			}
		}
	}

	if sel.Filter != nil {
		filter, err := stripCondition(sel.Filter, strip)
		if err != nil {
			return Criteria{}, err
		}
		c.Filter = filter
	}

	for _, ref := range sel.GroupBy {
		stripped, err := strip(ref)
		if err != nil {
			return Criteria{}, err
		}
		c.GroupBy = append(c.GroupBy, stripped)
	}

	if sel.OrderBy != nil {
		node := &query.OrderByNode{}
		for _, param := range sel.OrderBy.Parameters {
			if param.Column != nil {
				stripped, err := strip(*param.Column)
				if err != nil {
					return Criteria{}, err
				}
				param.Column = &stripped
			}
			if param.Agg != nil {
				stripped, err := strip(param.Agg.Column)
				if err != nil {
					return Criteria{}, err
				}
				agg := *param.Agg
				agg.Column = stripped
				param.Agg = &agg
			}
			node.Parameters = append(node.Parameters, param)
		}
		c.OrderBy = node
	}

	return c, nil
}

// stripCondition rewrites a condition tree, validating and removing alias
// qualifiers from every column reference.
func stripCondition(cond query.Condition, strip func(query.ColumnRef) (query.ColumnRef, error)) (query.Condition, error) {
	switch c := cond.(type) {
	case *query.BinaryCondition:
		left, err := stripCondition(c.Left, strip)
		if err != nil {
			return nil, err
		}
		right, err := stripCondition(c.Right, strip)
		if err != nil {
			return nil, err
		}
		return &query.BinaryCondition{Op: c.Op, Left: left, Right: right}, nil
	case *query.NotCondition:
		operand, err := stripCondition(c.Operand, strip)
		if err != nil {
			return nil, err
		}
		return &query.NotCondition{Operand: operand}, nil
	case *query.CompareCondition:
		out := &query.CompareCondition{Op: c.Op, Left: c.Left, Right: c.Right}
		if c.Left.Column != nil {
			stripped, err := strip(*c.Left.Column)
			if err != nil {
				return nil, err
			}
			out.Left.Column = &stripped
		}
		if c.Right.Column != nil {
			stripped, err := strip(*c.Right.Column)
			if err != nil {
				return nil, err
			}
			out.Right.Column = &stripped
		}
		return out, nil
	case *query.LikeCondition:
		stripped, err := strip(c.Column)
		if err != nil {
			return nil, err
		}
		return &query.LikeCondition{Column: stripped, Pattern: c.Pattern}, nil
	case *query.EqualityCondition:
		left, err := strip(c.Left)
		if err != nil {
			return nil, err
		}
		right, err := strip(c.Right)
		if err != nil {
			return nil, err
		}
		return &query.EqualityCondition{Left: left, Right: right}, nil
	default:
		return cond, nil
	}
}
