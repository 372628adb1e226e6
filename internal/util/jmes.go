package util

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jmespath/go-jmespath"
)

// InputQuery is a compiled JMESPath expression applied to execution inputs.
type InputQuery struct {
	expr     string
	compiled *jmespath.JMESPath
}

// CompileInputQuery compiles expr. An empty expr yields a nil query, which
// extracts nothing.
func CompileInputQuery(expr string) (*InputQuery, error) {
	if expr == "" {
		return nil, nil
	}
	c, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile input query %q: %w", expr, err)
	}
	return &InputQuery{expr: expr, compiled: c}, nil
}

// String returns the source expression.
func (q *InputQuery) String() string {
	if q == nil {
		return ""
	}
	return q.expr
}

// Extract evaluates the query against an execution input (decoded as JSON if
// possible; otherwise wrapped as {"message": raw}) and returns a non-empty
// string representation. Array results use the first element only.
// Returns (value, true, nil) on success; ("", false, nil) if nothing matched.
func (q *InputQuery) Extract(input *string) (string, bool, error) {
	if q == nil || input == nil || *input == "" {
		return "", false, nil
	}
	raw := *input
	var data any
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		data = decoded
	} else {
		data = map[string]any{"message": raw}
	}

	res, err := q.compiled.Search(data)
	if err != nil {
		return "", false, fmt.Errorf("jmespath search failed: %w", err)
	}
	if isEmpty(res) {
		return "", false, nil
	}
	rv := reflect.ValueOf(res)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		res = rv.Index(0).Interface()
		if isEmpty(res) {
			return "", false, nil
		}
	}
	switch v := res.(type) {
	case string:
		return v, true, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false, fmt.Errorf("marshal result failed: %w", err)
		}
		if s := string(b); s == "null" || s == "[]" || s == "{}" {
			return "", false, nil
		}
		return string(b), true, nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
