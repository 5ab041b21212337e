// Package query provides parsing for the ETL query language.
//
// It implements a SQL-like dialect with support for SELECT over
// heterogeneous datasources, multi-way JOINs, WHERE filters, grouping,
// aggregation, ordering, DISTINCT and LIMIT/TAIL. The package includes
// a lexer for tokenization and a recursive descent parser producing a
// typed statement tree.
//
// Example usage:
//
//	stmt, err := query.Parse("SELECT region, sum(amount) FROM csv:sales.csv GROUP BY region;")
//	if err != nil {
//	    log.Fatal(err)
//	}
package query

import "strconv"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenDistinct
	TokenInto
	TokenFrom
	TokenAs
	TokenJoin
	TokenInner
	TokenLeft
	TokenRight
	TokenFull
	TokenOuter
	TokenOn
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenLike
	TokenGroup
	TokenBy
	TokenOrder
	TokenAsc
	TokenDesc
	TokenLimit
	TokenTail
	TokenInsert
	TokenValues
	TokenUpdate
	TokenSet
	TokenDelete

	// Operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool
	TokenDatasource  // type:path literal
	TokenBracketName // [column name]
	TokenIndex       // #N positional column reference

	// Delimiters
	TokenStar       // *
	TokenDot        // .
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )
	TokenSemicolon  // ;

	// Special
	TokenEOF
	TokenError
)

// Token represents a lexical token with its source position.
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// Statement is the root of a parsed query. Exactly one of the concrete
// statement types implements it.
type Statement interface {
	stmt()
}

// Select represents a parsed SELECT statement.
type Select struct {
	Distinct    bool
	Columns     SelectColumns
	Into        *Datasource // INTO target, nil when absent
	Source      Datasource
	Alias       string // optional alias for the FROM source
	Joins       []JoinClause
	Filter      Condition // WHERE clause, nil when absent
	GroupBy     []ColumnRef
	OrderBy     *OrderByNode
	LimitOrTail *LimitNode
}

// Insert represents a parsed INSERT statement. Execution is a trivial
// pass-through: the value tuples are assembled into a relation and loaded.
type Insert struct {
	Target  Datasource
	Columns []ColumnRef
	Values  [][]interface{}
}

// Update represents a parsed UPDATE statement. Parsed for completeness
// only; plan construction rejects it.
type Update struct {
	Target      Datasource
	Assignments []Assignment
	Filter      Condition
}

// Delete represents a parsed DELETE statement. Parsed for completeness
// only; plan construction rejects it.
type Delete struct {
	Target Datasource
	Filter Condition
}

func (*Select) stmt() {}
func (*Insert) stmt() {}
func (*Update) stmt() {}
func (*Delete) stmt() {}

// Assignment is a single column = value pair in an UPDATE statement.
type Assignment struct {
	Column ColumnRef
	Value  interface{}
}

// Datasource identifies where a relation is extracted from or loaded to.
// The remote earth-observation form carries a 7-field pipe-delimited
// descriptor in Path.
type Datasource struct {
	SourceType string
	Path       string
}

// ColumnRefKind discriminates the two column reference forms.
type ColumnRefKind int

const (
	ColumnName  ColumnRefKind = iota // simple or bracketed name
	ColumnIndex                      // positional #N reference, 0-based
)

// ColumnRef references a column by name or by position. The reference is
// resolved against a relation's schema at execution time, not at parse
// time. Qualifier carries the optional table alias (alias.column).
type ColumnRef struct {
	Kind      ColumnRefKind
	Name      string
	Index     int
	Qualifier string
}

// SelectColumns is the SELECT list: either the wildcard or an ordered
// list of column references and aggregations.
type SelectColumns struct {
	All   bool
	Items []SelectColumn
}

// SelectColumn is a single SELECT list entry: a ColumnRef or an Aggregation.
type SelectColumn interface {
	selectColumn()
}

func (ColumnRef) selectColumn()   {}
func (Aggregation) selectColumn() {}

// Aggregation applies a function to a column or, for the counting
// function only, to the wildcard.
type Aggregation struct {
	Function string
	Column   ColumnRef
	Wildcard bool
}

// String returns the display name used for the aggregation's output
// column, e.g. "sum(amount)" or "size(*)".
func (a Aggregation) String() string {
	if a.Wildcard {
		return a.Function + "(*)"
	}
	return a.Function + "(" + a.Column.Display() + ")"
}

// Display returns the reference as written in the query, without the
// qualifier.
func (c ColumnRef) Display() string {
	if c.Kind == ColumnIndex {
		return "#" + strconv.Itoa(c.Index)
	}
	return c.Name
}

// JoinType represents the type of join operation
type JoinType int

const (
	JoinInner JoinType = iota // INNER JOIN (default)
	JoinLeft                  // LEFT JOIN / LEFT OUTER JOIN
	JoinRight                 // RIGHT JOIN / RIGHT OUTER JOIN
	JoinOuter                 // FULL OUTER JOIN
)

// Kind returns the join type as the execution engine's kind tag.
func (t JoinType) Kind() string {
	switch t {
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinOuter:
		return "outer"
	default:
		return "inner"
	}
}

// JoinClause represents a single JOIN clause.
type JoinClause struct {
	Type   JoinType
	Source Datasource
	Alias  string
	On     Condition
}

// Condition is a boolean expression tree from a WHERE or ON clause.
type Condition interface {
	cond()
}

// BinaryCondition combines two conditions with AND or OR.
type BinaryCondition struct {
	Op    TokenType // TokenAnd or TokenOr
	Left  Condition
	Right Condition
}

// NotCondition negates its operand.
type NotCondition struct {
	Operand Condition
}

// CompareCondition compares two operands with a relational operator.
type CompareCondition struct {
	Left  Operand
	Op    TokenType
	Right Operand
}

// LikeCondition matches a column against a SQL LIKE pattern.
type LikeCondition struct {
	Column  ColumnRef
	Pattern string
}

// EqualityCondition is the single-predicate ON clause form: equality of
// two (possibly qualified) columns.
type EqualityCondition struct {
	Left  ColumnRef
	Right ColumnRef
}

func (*BinaryCondition) cond()   {}
func (*NotCondition) cond()      {}
func (*CompareCondition) cond()  {}
func (*LikeCondition) cond()     {}
func (*EqualityCondition) cond() {}

// Operand is one side of a comparison: either a column reference or a
// literal value (string, int64, float64 or bool).
type Operand struct {
	Column  *ColumnRef
	Literal interface{}
}

// SortDirection is the ordering direction of one ORDER BY parameter.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

// OrderByParameter is one sort key: a plain column or an aggregation
// expression, each with its own direction.
type OrderByParameter struct {
	Column    *ColumnRef   // nil when Agg is set
	Agg       *Aggregation // nil when Column is set
	Direction SortDirection
}

// OrderByNode holds the ORDER BY parameters in priority order; the first
// parameter is the primary sort key.
type OrderByNode struct {
	Parameters []OrderByParameter
}

// LimitKind discriminates LIMIT (keep first N) from TAIL (keep last N).
type LimitKind int

const (
	LimitHead LimitKind = iota
	LimitTail
)

// LimitNode is a LIMIT or TAIL clause with its row count.
type LimitNode struct {
	Kind LimitKind
	N    int64
}
