package evaluator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

// Evaluate evaluates an expression such as `score > 80 && label == 'gut'`
// against variables. Identifiers, dot paths and index expressions are resolved
// from variables; unknown references evaluate to nil.
func Evaluate(expr string, variables map[string]interface{}) (interface{}, error) {
	node, err := parse(expr)
	if err != nil {
		return nil, err
	}
	return evaluate(node, variables)
}

// Validate checks that expr parses, it does not resolve any reference
func Validate(expr string) error {
	_, err := parse(expr)
	return err
}

func parse(expr string) (ast.Expr, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "${") && strings.HasSuffix(expr, "}") {
		expr = expr[2 : len(expr)-1]
	}
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	// Convert single-quoted literals (e.g., 'text') to double-quoted for Go parsing
	expr = singleQuoted.ReplaceAllString(expr, `"$1"`)
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expr, err)
	}
	return node, nil
}

// EvaluateBool evaluates expression and coerces the result into bool.
// An empty expression yields defaultValue.
func EvaluateBool(expr string, variables map[string]interface{}, defaultValue bool) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return defaultValue, nil
	}
	value, err := Evaluate(expr, variables)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// Truthy coerces a value into bool
func Truthy(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return false
	case bool:
		return actual
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(actual)); err == nil {
			return b
		}
		return strings.TrimSpace(actual) != ""
	}
	if isNumber(value) {
		return toFloat64(value) != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func evaluate(node ast.Expr, vars map[string]interface{}) (interface{}, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT:
			return strconv.Atoi(n.Value)
		case token.FLOAT:
			return strconv.ParseFloat(n.Value, 64)
		case token.STRING:
			if s, err := strconv.Unquote(n.Value); err == nil {
				return s, nil
			}
			return strings.Trim(n.Value, "\"`"), nil
		case token.CHAR:
			return strings.Trim(n.Value, "'"), nil
		}
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil", "null":
			return nil, nil
		}
		return vars[n.Name], nil
	case *ast.ParenExpr:
		return evaluate(n.X, vars)
	case *ast.SelectorExpr:
		x, err := evaluate(n.X, vars)
		if err != nil {
			return nil, err
		}
		return property(x, n.Sel.Name), nil
	case *ast.IndexExpr:
		x, err := evaluate(n.X, vars)
		if err != nil {
			return nil, err
		}
		idx, err := evaluate(n.Index, vars)
		if err != nil {
			return nil, err
		}
		return index(x, idx), nil
	case *ast.UnaryExpr:
		x, err := evaluate(n.X, vars)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.NOT:
			return !Truthy(x), nil
		case token.SUB:
			if isInt(x) {
				return -toInt(x), nil
			}
			return -toFloat64(x), nil
		case token.ADD:
			return x, nil
		}
	case *ast.BinaryExpr:
		return evaluateBinary(n, vars)
	case *ast.CallExpr:
		return evaluateCall(n, vars)
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

func evaluateBinary(n *ast.BinaryExpr, vars map[string]interface{}) (interface{}, error) {
	x, err := evaluate(n.X, vars)
	if err != nil {
		return nil, err
	}
	// short circuit logical operators
	switch n.Op {
	case token.LAND:
		if !Truthy(x) {
			return false, nil
		}
		y, err := evaluate(n.Y, vars)
		return Truthy(y), err
	case token.LOR:
		if Truthy(x) {
			return true, nil
		}
		y, err := evaluate(n.Y, vars)
		return Truthy(y), err
	}
	y, err := evaluate(n.Y, vars)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.EQL:
		return equal(x, y), nil
	case token.NEQ:
		return !equal(x, y), nil
	case token.LSS, token.GTR, token.LEQ, token.GEQ:
		cmp, ok := compare(x, y)
		if !ok {
			return false, nil
		}
		switch n.Op {
		case token.LSS:
			return cmp < 0, nil
		case token.GTR:
			return cmp > 0, nil
		case token.LEQ:
			return cmp <= 0, nil
		default:
			return cmp >= 0, nil
		}
	case token.ADD:
		if xs, ok := x.(string); ok {
			return xs + stringify(y), nil
		}
		if ys, ok := y.(string); ok {
			return stringify(x) + ys, nil
		}
		if isInt(x) && isInt(y) {
			return toInt(x) + toInt(y), nil
		}
		return toFloat64(x) + toFloat64(y), nil
	case token.SUB:
		if isInt(x) && isInt(y) {
			return toInt(x) - toInt(y), nil
		}
		return toFloat64(x) - toFloat64(y), nil
	case token.MUL:
		if isInt(x) && isInt(y) {
			return toInt(x) * toInt(y), nil
		}
		return toFloat64(x) * toFloat64(y), nil
	case token.QUO:
		if toFloat64(y) == 0 {
			return math.Inf(1), nil
		}
		return toFloat64(x) / toFloat64(y), nil
	case token.REM:
		if isInt(x) && isInt(y) && toInt(y) != 0 {
			return toInt(x) % toInt(y), nil
		}
		return math.NaN(), nil
	}
	return nil, fmt.Errorf("unsupported operator %v", n.Op)
}

func evaluateCall(n *ast.CallExpr, vars map[string]interface{}) (interface{}, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported function call")
	}
	args := make([]interface{}, 0, len(n.Args))
	for _, arg := range n.Args {
		value, err := evaluate(arg, vars)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	switch fn.Name {
	case "len":
		if len(args) != 1 {
			return nil, fmt.Errorf("len expects 1 argument")
		}
		return length(args[0]), nil
	case "contains":
		if len(args) != 2 {
			return nil, fmt.Errorf("contains expects 2 arguments")
		}
		return contains(args[0], args[1]), nil
	case "lower":
		if len(args) != 1 {
			return nil, fmt.Errorf("lower expects 1 argument")
		}
		return strings.ToLower(stringify(args[0])), nil
	case "isNil":
		if len(args) != 1 {
			return nil, fmt.Errorf("isNil expects 1 argument")
		}
		return args[0] == nil, nil
	}
	return nil, fmt.Errorf("unknown function %s", fn.Name)
}

func length(value interface{}) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

func contains(container, item interface{}) bool {
	switch c := container.(type) {
	case string:
		return strings.Contains(c, stringify(item))
	case map[string]interface{}:
		_, ok := c[stringify(item)]
		return ok
	}
	rv := reflect.ValueOf(container)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if equal(rv.Index(i).Interface(), item) {
				return true
			}
		}
	}
	return false
}

func equal(x, y interface{}) bool {
	if isNumber(x) && isNumber(y) {
		return toFloat64(x) == toFloat64(y)
	}
	if isNumber(x) || isNumber(y) {
		// numeric strings extracted from text compare with numbers
		if xs, ok := x.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
			return err == nil && f == toFloat64(y)
		}
		if ys, ok := y.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
			return err == nil && f == toFloat64(x)
		}
	}
	return reflect.DeepEqual(x, y)
}

func compare(x, y interface{}) (int, bool) {
	xs, xIsString := x.(string)
	ys, yIsString := y.(string)
	if xIsString && yIsString {
		return strings.Compare(xs, ys), true
	}
	xf, ok := numeric(x)
	if !ok {
		return 0, false
	}
	yf, ok := numeric(y)
	if !ok {
		return 0, false
	}
	switch {
	case xf < yf:
		return -1, true
	case xf > yf:
		return 1, true
	}
	return 0, true
}

func numeric(v interface{}) (float64, bool) {
	if isNumber(v) {
		return toFloat64(v), true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

// property resolves a field of a map or struct
func property(obj interface{}, name string) interface{} {
	if obj == nil {
		return nil
	}
	switch actual := obj.(type) {
	case map[string]interface{}:
		return actual[name]
	case map[string]string:
		if v, ok := actual[name]; ok {
			return v
		}
		return nil
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil
		}
		item := val.MapIndex(reflect.ValueOf(name).Convert(val.Type().Key()))
		if !item.IsValid() {
			return nil
		}
		return item.Interface()
	case reflect.Struct:
		field := val.FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, name) })
		if !field.IsValid() || !field.CanInterface() {
			return nil
		}
		return field.Interface()
	}
	return nil
}

// index resolves elements of slices or map entries
func index(obj interface{}, idx interface{}) interface{} {
	if obj == nil {
		return nil
	}
	if key, ok := idx.(string); ok {
		return property(obj, key)
	}
	if !isNumber(idx) {
		return nil
	}
	i := toInt(idx)
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil
	}
	if i < 0 || i >= val.Len() {
		return nil
	}
	return val.Index(i).Interface()
}

func isInt(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isNumber(v interface{}) bool {
	if isInt(v) {
		return true
	}
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toInt(v interface{}) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int(rv.Float())
	}
	return 0
}

func toFloat64(v interface{}) float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return 0
}

// stringify converts a value to its string representation for interpolation
func stringify(val interface{}) string {
	switch actual := val.(type) {
	case nil:
		return ""
	case string:
		return actual
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(actual), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(actual)
	}
	if isInt(val) {
		return strconv.Itoa(toInt(val))
	}
	return fmt.Sprintf("%v", val)
}
