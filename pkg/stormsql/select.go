// Package stormsql translates a subset of SQL SELECT statements into Storm queries.
package stormsql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/asdine/storm/v3/q"
	"github.com/mdouchement/itemtrack/pkg/structs"
	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"
)

// A SelectClause contains all the parsed SQL data.
type SelectClause struct {
	SelectedFields  []string
	Count           bool
	Tablename       string
	Matcher         q.Matcher
	Skip            int
	Limit           int
	OrderBy         []string
	OrderByReversed bool
}

// A TableFunc returns an empty record of the named table.
type TableFunc func(name string) (any, error)

// columns holds the field names of the queried record.
type columns []string

// resolve returns the record field designated by col.
// The parser lowercases some names (e.g. status) so the lookup is case-insensitive.
func (c columns) resolve(col *sqlparser.ColName) (string, error) {
	name := col.Name.String()
	for _, field := range c {
		if strings.EqualFold(field, name) {
			return field, nil
		}
	}
	return "", errors.Errorf("unknown column: %s", name)
}

// ParseSelect parses the given SELECT statement.
// Column names are resolved against the fields of the record returned by table.
func ParseSelect(sql string, table TableFunc) (*SelectClause, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse SQL")
	}

	s, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, errors.New("not a select statement")
	}

	var sc SelectClause

	// FROM items
	if len(s.From) != 1 {
		return nil, errors.New("exactly one table must be selected")
	}
	from, ok := s.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, errors.New("joins are not supported")
	}
	sc.Tablename = sqlparser.GetTableName(from.Expr).String()
	if sc.Tablename == "" {
		return nil, errors.New("subqueries are not supported")
	}

	record, err := table(sc.Tablename)
	if err != nil {
		return nil, err
	}
	fields, err := structs.Fields(record)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list columns of %s", sc.Tablename)
	}
	cols := columns(fields)

	// SELECT * ...
	// SELECT UserID,UpdatedAt ...
	// SELECT count(*) ...
	for _, se := range s.SelectExprs {
		switch v := se.(type) {
		case *sqlparser.StarExpr:
			sc.SelectedFields = []string{}
		case *sqlparser.AliasedExpr:
			switch v := v.Expr.(type) {
			case *sqlparser.ColName:
				field, err := cols.resolve(v)
				if err != nil {
					return nil, err
				}
				sc.SelectedFields = append(sc.SelectedFields, field)
			case *sqlparser.FuncExpr:
				if v.Name.Lowered() != "count" {
					return nil, errors.Errorf("unsupported function: %s", v.Name.String())
				}
				sc.SelectedFields = []string{}
				sc.Count = true
			default:
				return nil, errors.Errorf("unsupported select expression: %s", sqlparser.String(v))
			}
		default:
			return nil, errors.New("unsupported select expression")
		}
	}

	// WHERE
	sc.Matcher = q.And()
	if s.Where != nil {
		sc.Matcher, err = parseWhereExpr(s.Where.Expr, cols)
		if err != nil {
			return nil, err
		}
	}

	// LIMIT 5
	// LIMIT 2,5
	if s.Limit != nil {
		if s.Limit.Offset != nil {
			if sc.Skip, err = parseInt(s.Limit.Offset); err != nil {
				return nil, errors.Wrap(err, "offset")
			}
		}
		if sc.Limit, err = parseInt(s.Limit.Rowcount); err != nil {
			return nil, errors.Wrap(err, "limit")
		}
	}

	// ORDER BY UpdatedAt
	// ORDER BY UpdatedAt DESC
	// ORDER BY UpdatedAt DESC, CreatedAt ASC     => All will be DESC due to storm limitation
	for _, ob := range s.OrderBy {
		col, ok := ob.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.Errorf("unsupported order expression: %s", sqlparser.String(ob.Expr))
		}

		field, err := cols.resolve(col)
		if err != nil {
			return nil, err
		}

		if ob.Direction == sqlparser.DescScr {
			sc.OrderByReversed = true
		}
		sc.OrderBy = append(sc.OrderBy, field)
	}

	return &sc, nil
}

func parseWhereExpr(expr sqlparser.Expr, cols columns) (q.Matcher, error) {
	switch v := expr.(type) {
	case *sqlparser.ComparisonExpr:
		return parseComparison(v, cols)
	case *sqlparser.IsExpr:
		col, ok := v.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.Errorf("unsupported operand: %s", sqlparser.String(v.Expr))
		}

		field, err := cols.resolve(col)
		if err != nil {
			return nil, err
		}

		switch v.Operator {
		case sqlparser.IsNullStr:
			return q.Eq(field, nil), nil
		case sqlparser.IsNotNullStr:
			return q.Not(q.Eq(field, nil)), nil
		default:
			return nil, errors.Errorf("unsupported operator: %s", v.Operator)
		}
	case *sqlparser.AndExpr:
		return combine(q.And, cols, v.Left, v.Right)
	case *sqlparser.OrExpr:
		return combine(q.Or, cols, v.Left, v.Right)
	case *sqlparser.NotExpr:
		m, err := parseWhereExpr(v.Expr, cols)
		if err != nil {
			return nil, err
		}
		return q.Not(m), nil
	case *sqlparser.ParenExpr:
		return parseWhereExpr(v.Expr, cols)
	default:
		return nil, errors.Errorf("unsupported where expression: %s", sqlparser.String(expr))
	}
}

func combine(op func(...q.Matcher) q.Matcher, cols columns, left, right sqlparser.Expr) (q.Matcher, error) {
	l, err := parseWhereExpr(left, cols)
	if err != nil {
		return nil, err
	}

	r, err := parseWhereExpr(right, cols)
	if err != nil {
		return nil, err
	}

	return op(l, r), nil
}

func parseComparison(v *sqlparser.ComparisonExpr, cols columns) (q.Matcher, error) {
	col, ok := v.Left.(*sqlparser.ColName)
	if !ok {
		return nil, errors.Errorf("unsupported operand: %s", sqlparser.String(v.Left))
	}
	field, err := cols.resolve(col)
	if err != nil {
		return nil, err
	}

	// Patterns are never converted to dates.
	switch v.Operator {
	case sqlparser.LikeStr, sqlparser.NotLikeStr, sqlparser.RegexpStr, sqlparser.NotRegexpStr:
		val, ok := v.Right.(*sqlparser.SQLVal)
		if !ok || val.Type != sqlparser.StrVal {
			return nil, errors.Errorf("%s expects a string pattern", v.Operator)
		}

		pattern := string(val.Val)
		if v.Operator == sqlparser.LikeStr || v.Operator == sqlparser.NotLikeStr {
			pattern = LikeToRegexp(pattern)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, errors.Wrap(err, "invalid pattern")
		}

		if v.Operator == sqlparser.NotLikeStr || v.Operator == sqlparser.NotRegexpStr {
			return q.Not(q.Re(field, pattern)), nil
		}
		return q.Re(field, pattern), nil
	}

	value, err := parseValue(v.Right)
	if err != nil {
		return nil, err
	}

	switch v.Operator {
	case sqlparser.EqualStr:
		return q.Eq(field, value), nil
	case sqlparser.NotEqualStr:
		return q.Not(q.Eq(field, value)), nil
	case sqlparser.GreaterThanStr:
		return q.Gt(field, value), nil
	case sqlparser.GreaterEqualStr:
		return q.Gte(field, value), nil
	case sqlparser.LessThanStr:
		return q.Lt(field, value), nil
	case sqlparser.LessEqualStr:
		return q.Lte(field, value), nil
	case sqlparser.InStr:
		return q.In(field, value), nil
	case sqlparser.NotInStr:
		return q.Not(q.In(field, value)), nil
	default:
		return nil, errors.Errorf("unsupported operator: %s", v.Operator)
	}
}

func parseValue(expr sqlparser.Expr) (any, error) {
	switch v := expr.(type) {
	case sqlparser.BoolVal:
		return bool(v), nil
	case *sqlparser.NullVal:
		return nil, nil
	case sqlparser.ValTuple:
		tuple := make([]any, 0, len(v))
		for _, e := range v {
			value, err := parseValue(e)
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, value)
		}
		return tuple, nil
	case *sqlparser.SQLVal:
		return parseSQLVal(v)
	default:
		return nil, errors.Errorf("unsupported value: %s", sqlparser.String(expr))
	}
}

func parseSQLVal(v *sqlparser.SQLVal) (any, error) {
	switch v.Type {
	case sqlparser.StrVal:
		// Try to convert to time.Time if possible
		if t, err := dateparse.ParseStrict(string(v.Val)); err == nil {
			return t.UTC(), nil
		}
		return string(v.Val), nil
	case sqlparser.IntVal:
		return strconv.Atoi(string(v.Val))
	case sqlparser.FloatVal:
		return strconv.ParseFloat(string(v.Val), 64)
	case sqlparser.HexNum:
		return strconv.ParseInt(strings.TrimPrefix(strings.ToLower(string(v.Val)), "0x"), 16, 64)
	case sqlparser.HexVal:
		return v.HexDecode()
	case sqlparser.BitVal:
		return len(v.Val) > 0 && v.Val[0] == 1, nil
	default:
		return nil, errors.Errorf("unsupported value: %s", sqlparser.String(v))
	}
}

func parseInt(expr sqlparser.Expr) (int, error) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, errors.Errorf("integer expected, got %s", sqlparser.String(expr))
	}
	return strconv.Atoi(string(v.Val))
}

// LikeToRegexp converts a SQL LIKE pattern into a case-insensitive regular expression.
// % matches any sequence, _ matches one character and \ escapes the next one.
func LikeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?is)^")

	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}

	b.WriteString("$")
	return b.String()
}

// String returns a human readable form of the clause.
func (sc *SelectClause) String() string {
	fields := "*"
	if sc.Count {
		fields = "count(*)"
	} else if len(sc.SelectedFields) > 0 {
		fields = strings.Join(sc.SelectedFields, ",")
	}
	return fmt.Sprintf("%s FROM %s (skip: %d, limit: %d, order: %v, reversed: %t)",
		fields, sc.Tablename, sc.Skip, sc.Limit, sc.OrderBy, sc.OrderByReversed)
}
