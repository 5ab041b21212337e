package query

import (
	"strconv"
	"strings"
)

// aggregateFunctions are the functions accepted in a select list.
var aggregateFunctions = map[string]bool{
	"size": true,
	"sum":  true,
	"avg":  true,
	"min":  true,
	"max":  true,
}

// Parser builds a statement from a token stream
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over the given tokens
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a single statement. The statement must be
// terminated by ';' and nothing may follow the terminator.
func Parse(text string) (Statement, error) {
	p := NewParser(Tokenize(text))
	return p.ParseStatement()
}

// ParseStatement parses one statement from the token stream
func (p *Parser) ParseStatement() (Statement, error) {
	var stmt Statement
	var err error

	switch p.current().Type {
	case TokenSelect:
		stmt, err = p.parseSelect()
	case TokenInsert:
		stmt, err = p.parseInsert()
	case TokenUpdate:
		stmt, err = p.parseUpdate()
	case TokenDelete:
		stmt, err = p.parseDelete()
	default:
		return nil, p.errf(p.current(), "expected SELECT, INSERT, UPDATE or DELETE")
	}
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenSemicolon, "expected ';'"); err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, p.errf(p.current(), "unexpected input after ';'")
	}
	return stmt, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tokType TokenType, msg string) error {
	if p.current().Type != tokType {
		return p.errf(p.current(), msg)
	}
	p.advance()
	return nil
}

func (p *Parser) errf(tok Token, msg string) *SyntaxError {
	display := tok.Value
	if tok.Type == TokenEOF {
		display = "<end of input>"
	}
	return &SyntaxError{Token: display, Line: tok.Line, Column: tok.Col, Msg: msg}
}

// parseSelect parses a SELECT statement. Clauses appear in a fixed order:
// DISTINCT, select list, INTO, FROM, joins, WHERE, GROUP BY, ORDER BY,
// LIMIT or TAIL.
func (p *Parser) parseSelect() (*Select, error) {
	sel := &Select{}
	p.advance() // SELECT

	if p.current().Type == TokenDistinct {
		sel.Distinct = true
		p.advance()
	}

	columns, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	sel.Columns = columns

	if p.current().Type == TokenInto {
		p.advance()
		ds, err := p.parseDatasource()
		if err != nil {
			return nil, err
		}
		sel.Into = &ds
	}

	if err := p.expect(TokenFrom, "expected FROM"); err != nil {
		return nil, err
	}
	sel.Source, err = p.parseDatasource()
	if err != nil {
		return nil, err
	}
	sel.Alias = p.parseOptionalAlias()

	for p.isJoinStart() {
		join, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		sel.Joins = append(sel.Joins, join)
	}

	if p.current().Type == TokenWhere {
		p.advance()
		sel.Filter, err = p.parseCondition()
		if err != nil {
			return nil, err
		}
	}

	if p.current().Type == TokenGroup {
		p.advance()
		if err := p.expect(TokenBy, "expected BY after GROUP"); err != nil {
			return nil, err
		}
		for {
			col, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, col)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	if p.current().Type == TokenOrder {
		p.advance()
		if err := p.expect(TokenBy, "expected BY after ORDER"); err != nil {
			return nil, err
		}
		sel.OrderBy, err = p.parseOrderBy()
		if err != nil {
			return nil, err
		}
	}

	if p.current().Type == TokenLimit || p.current().Type == TokenTail {
		node, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		sel.LimitOrTail = node
	}

	return sel, nil
}

// parseSelectColumns parses the select list: '*' or a comma separated list
// of column references and aggregations.
func (p *Parser) parseSelectColumns() (SelectColumns, error) {
	if p.current().Type == TokenStar {
		p.advance()
		return SelectColumns{All: true}, nil
	}

	var cols SelectColumns
	for {
		item, err := p.parseSelectColumn()
		if err != nil {
			return SelectColumns{}, err
		}
		cols.Items = append(cols.Items, item)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if len(cols.Items) == 0 {
		return SelectColumns{}, p.errf(p.current(), "expected select list")
	}
	return cols, nil
}

func (p *Parser) parseSelectColumn() (SelectColumn, error) {
	tok := p.current()
	if tok.Type == TokenIdent && aggregateFunctions[strings.ToLower(tok.Value)] && p.peek().Type == TokenLeftParen {
		agg, err := p.parseAggregation()
		if err != nil {
			return nil, err
		}
		return agg, nil
	}
	col, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	return col, nil
}

// parseAggregation parses function(column) or size(*). Only size accepts
// a wildcard argument.
func (p *Parser) parseAggregation() (Aggregation, error) {
	fn := strings.ToLower(p.advance().Value)
	p.advance() // (

	agg := Aggregation{Function: fn}
	if p.current().Type == TokenStar {
		if fn != "size" {
			return Aggregation{}, &AggregationWildcardError{Function: fn}
		}
		agg.Wildcard = true
		p.advance()
	} else {
		col, err := p.parseColumnRef()
		if err != nil {
			return Aggregation{}, err
		}
		agg.Column = col
	}

	if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
		return Aggregation{}, err
	}
	return agg, nil
}

// parseColumnRef parses a column reference: a bare identifier, a
// [bracketed name], a #N positional index, or any of those with a leading
// alias qualifier.
func (p *Parser) parseColumnRef() (ColumnRef, error) {
	var qualifier string
	if p.current().Type == TokenIdent && p.peek().Type == TokenDot {
		qualifier = p.advance().Value
		p.advance() // .
	}

	tok := p.current()
	switch tok.Type {
	case TokenIdent:
		p.advance()
		return ColumnRef{Kind: ColumnName, Name: tok.Value, Qualifier: qualifier}, nil
	case TokenBracketName:
		p.advance()
		return ColumnRef{Kind: ColumnName, Name: tok.Value, Qualifier: qualifier}, nil
	case TokenIndex:
		p.advance()
		n, err := strconv.Atoi(tok.Value)
		if err != nil {
			return ColumnRef{}, p.errf(tok, "invalid column index")
		}
		return ColumnRef{Kind: ColumnIndex, Index: n, Qualifier: qualifier}, nil
	default:
		return ColumnRef{}, p.errf(tok, "expected column reference")
	}
}

// parseDatasource parses a type:path datasource literal. A quoted string
// is also accepted for paths with characters the bare form cannot carry.
func (p *Parser) parseDatasource() (Datasource, error) {
	tok := p.current()
	var raw string
	switch tok.Type {
	case TokenDatasource:
		raw = tok.Value
	case TokenString:
		raw = tok.Value
	default:
		return Datasource{}, p.errf(tok, "expected datasource (type:path)")
	}
	p.advance()

	idx := strings.Index(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return Datasource{}, p.errf(tok, "expected datasource (type:path)")
	}
	return Datasource{SourceType: strings.ToLower(raw[:idx]), Path: raw[idx+1:]}, nil
}

// parseOptionalAlias consumes [AS] identifier if present.
func (p *Parser) parseOptionalAlias() string {
	if p.current().Type == TokenAs {
		p.advance()
		if p.current().Type == TokenIdent {
			return p.advance().Value
		}
		return ""
	}
	if p.current().Type == TokenIdent {
		return p.advance().Value
	}
	return ""
}

func (p *Parser) isJoinStart() bool {
	switch p.current().Type {
	case TokenJoin, TokenInner, TokenLeft, TokenRight, TokenFull:
		return true
	}
	return false
}

// parseJoinClause parses [INNER|LEFT [OUTER]|RIGHT [OUTER]|FULL OUTER] JOIN
// datasource [alias] ON condition. The default join type is inner.
func (p *Parser) parseJoinClause() (JoinClause, error) {
	join := JoinClause{Type: JoinInner}

	switch p.current().Type {
	case TokenInner:
		p.advance()
	case TokenLeft:
		join.Type = JoinLeft
		p.advance()
		if p.current().Type == TokenOuter {
			p.advance()
		}
	case TokenRight:
		join.Type = JoinRight
		p.advance()
		if p.current().Type == TokenOuter {
			p.advance()
		}
	case TokenFull:
		join.Type = JoinOuter
		p.advance()
		if err := p.expect(TokenOuter, "expected OUTER after FULL"); err != nil {
			return JoinClause{}, err
		}
	}

	if err := p.expect(TokenJoin, "expected JOIN"); err != nil {
		return JoinClause{}, err
	}

	source, err := p.parseDatasource()
	if err != nil {
		return JoinClause{}, err
	}
	join.Source = source
	join.Alias = p.parseOptionalAlias()

	if err := p.expect(TokenOn, "expected ON"); err != nil {
		return JoinClause{}, err
	}
	join.On, err = p.parseOnCondition()
	if err != nil {
		return JoinClause{}, err
	}
	return join, nil
}

// parseOnCondition parses a join condition: column = column leaves composed
// with AND and OR. Whether a composed condition is acceptable is decided
// when the plan is built, not here.
func (p *Parser) parseOnCondition() (Condition, error) {
	left, err := p.parseOnAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseOnAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryCondition{Op: TokenOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseOnAnd() (Condition, error) {
	left, err := p.parseOnEquality()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseOnEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryCondition{Op: TokenAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseOnEquality() (Condition, error) {
	if p.current().Type == TokenLeftParen {
		p.advance()
		cond, err := p.parseOnCondition()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
			return nil, err
		}
		return cond, nil
	}

	left, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenEqual, "expected '=' in join condition"); err != nil {
		return nil, err
	}
	right, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	return &EqualityCondition{Left: left, Right: right}, nil
}

// parseCondition parses a WHERE condition with OR as the lowest precedence
// level, then AND, then NOT, then comparisons.
func (p *Parser) parseCondition() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryCondition{Op: TokenOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryCondition{Op: TokenAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Condition, error) {
	if p.current().Type == TokenNot {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotCondition{Operand: operand}, nil
	}
	if p.current().Type == TokenLeftParen {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
			return nil, err
		}
		return cond, nil
	}
	return p.parseComparison()
}

// parseComparison parses operand OP operand or column LIKE 'pattern'.
func (p *Parser) parseComparison() (Condition, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenLike {
		if left.Column == nil {
			return nil, p.errf(p.current(), "LIKE requires a column on the left")
		}
		p.advance()
		if p.current().Type != TokenString {
			return nil, p.errf(p.current(), "expected pattern string after LIKE")
		}
		pattern := p.advance().Value
		return &LikeCondition{Column: *left.Column, Pattern: pattern}, nil
	}

	op := p.current()
	switch op.Type {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
	default:
		return nil, p.errf(op, "expected comparison operator")
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &CompareCondition{Left: left, Op: op.Type, Right: right}, nil
}

// parseOperand parses a comparison operand: a column reference or a literal.
func (p *Parser) parseOperand() (Operand, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return Operand{Literal: tok.Value}, nil
	case TokenNumber:
		p.advance()
		value, err := parseNumber(tok.Value)
		if err != nil {
			return Operand{}, p.errf(tok, "invalid number")
		}
		return Operand{Literal: value}, nil
	case TokenBool:
		p.advance()
		return Operand{Literal: strings.EqualFold(tok.Value, "true")}, nil
	case TokenIdent, TokenBracketName, TokenIndex:
		col, err := p.parseColumnRef()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Column: &col}, nil
	default:
		return Operand{}, p.errf(tok, "expected column or literal")
	}
}

// parseNumber parses an integer or float literal. Integers stay int64.
func parseNumber(s string) (interface{}, error) {
	if strings.Contains(s, ".") {
		return strconv.ParseFloat(s, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseOrderBy parses ORDER BY parameters. Each parameter is a column
// reference or an aggregation, optionally followed by ASC or DESC.
func (p *Parser) parseOrderBy() (*OrderByNode, error) {
	node := &OrderByNode{}
	for {
		var param OrderByParameter

		tok := p.current()
		if tok.Type == TokenIdent && aggregateFunctions[strings.ToLower(tok.Value)] && p.peek().Type == TokenLeftParen {
			agg, err := p.parseAggregation()
			if err != nil {
				return nil, err
			}
			param.Agg = &agg
		} else {
			col, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			param.Column = &col
		}

		switch p.current().Type {
		case TokenAsc:
			p.advance()
		case TokenDesc:
			param.Direction = Desc
			p.advance()
		}

		node.Parameters = append(node.Parameters, param)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	return node, nil
}

// parseLimit parses LIMIT n or TAIL n. The count must be a non-negative
// integer.
func (p *Parser) parseLimit() (*LimitNode, error) {
	kind := LimitHead
	if p.advance().Type == TokenTail {
		kind = LimitTail
	}

	tok := p.current()
	if tok.Type != TokenNumber {
		return nil, p.errf(tok, "expected row count")
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil || n < 0 {
		return nil, p.errf(tok, "row count must be a non-negative integer")
	}
	p.advance()
	return &LimitNode{Kind: kind, N: n}, nil
}

// parseInsert parses INSERT INTO datasource (columns) VALUES (...), (...).
func (p *Parser) parseInsert() (*Insert, error) {
	p.advance() // INSERT
	if err := p.expect(TokenInto, "expected INTO"); err != nil {
		return nil, err
	}

	ins := &Insert{}
	target, err := p.parseDatasource()
	if err != nil {
		return nil, err
	}
	ins.Target = target

	if err := p.expect(TokenLeftParen, "expected '('"); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		ins.Columns = append(ins.Columns, col)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
		return nil, err
	}

	if err := p.expect(TokenValues, "expected VALUES"); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueRow(len(ins.Columns))
		if err != nil {
			return nil, err
		}
		ins.Values = append(ins.Values, row)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	return ins, nil
}

func (p *Parser) parseValueRow(arity int) ([]interface{}, error) {
	start := p.current()
	if err := p.expect(TokenLeftParen, "expected '('"); err != nil {
		return nil, err
	}
	var row []interface{}
	for {
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		row = append(row, value)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
		return nil, err
	}
	if len(row) != arity {
		return nil, p.errf(start, "value row arity does not match column list")
	}
	return row, nil
}

func (p *Parser) parseLiteral() (interface{}, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return tok.Value, nil
	case TokenNumber:
		p.advance()
		value, err := parseNumber(tok.Value)
		if err != nil {
			return nil, p.errf(tok, "invalid number")
		}
		return value, nil
	case TokenBool:
		p.advance()
		return strings.EqualFold(tok.Value, "true"), nil
	default:
		return nil, p.errf(tok, "expected literal value")
	}
}

// parseUpdate parses UPDATE datasource SET col = value [, ...] [WHERE ...].
func (p *Parser) parseUpdate() (*Update, error) {
	p.advance() // UPDATE

	upd := &Update{}
	target, err := p.parseDatasource()
	if err != nil {
		return nil, err
	}
	upd.Target = target

	if err := p.expect(TokenSet, "expected SET"); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenEqual, "expected '='"); err != nil {
			return nil, err
		}
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		upd.Assignments = append(upd.Assignments, Assignment{Column: col, Value: value})
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if p.current().Type == TokenWhere {
		p.advance()
		upd.Filter, err = p.parseCondition()
		if err != nil {
			return nil, err
		}
	}
	return upd, nil
}

// parseDelete parses DELETE FROM datasource [WHERE ...].
func (p *Parser) parseDelete() (*Delete, error) {
	p.advance() // DELETE
	if err := p.expect(TokenFrom, "expected FROM"); err != nil {
		return nil, err
	}

	del := &Delete{}
	target, err := p.parseDatasource()
	if err != nil {
		return nil, err
	}
	del.Target = target

	if p.current().Type == TokenWhere {
		p.advance()
		del.Filter, err = p.parseCondition()
		if err != nil {
			return nil, err
		}
	}
	return del, nil
}
