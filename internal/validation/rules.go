package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rule checks one value and returns it converted to its canonical type.
// path is the dotted address of the value, used in error messages.
type Rule interface {
	Apply(value any, path string) (any, error)
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(value any, path string) (any, error)

// Apply implements Rule.
func (f RuleFunc) Apply(value any, path string) (any, error) {
	return f(value, path)
}

// String accepts strings only.
func String() Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, invalid(path, value, "expected str")
		}
		return s, nil
	})
}

// ID accepts an identifier given as a string or as a whole number and
// returns it as a string.
func ID() Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return nil, invalid(path, value, "identifier must not be empty")
			}
			return v, nil
		case float64:
			if v == math.Trunc(v) && !math.IsInf(v, 0) {
				return strconv.FormatFloat(v, 'f', -1, 64), nil
			}
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case json.Number:
			return v.String(), nil
		}
		return nil, invalid(path, value, "expected an identifier")
	})
}

// Int coerces to int64.
func Int() Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case float64:
			if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
				return int64(v), nil
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, nil
			}
		}
		return nil, invalid(path, value, "expected int")
	})
}

// Float coerces to a finite float64.
func Float() Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case json.Number:
			n, err := v.Float64()
			if err != nil {
				return nil, invalid(path, value, "expected float")
			}
			f = n
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, invalid(path, value, "expected float")
			}
			f = n
		default:
			return nil, invalid(path, value, "expected float")
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid(path, value, "expected a finite number")
		}
		return f, nil
	})
}

// Bool coerces the usual spellings of true and false.
func Bool() Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "1", "y", "t":
				return true, nil
			case "false", "no", "0", "n", "f":
				return false, nil
			}
		case int:
			if v == 0 || v == 1 {
				return v == 1, nil
			}
		case int64:
			if v == 0 || v == 1 {
				return v == 1, nil
			}
		case float64:
			if v == 0 || v == 1 {
				return v == 1, nil
			}
		}
		return nil, invalid(path, value, "expected bool")
	})
}

// Literal accepts exactly want.
func Literal(want string) Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		if s, ok := value.(string); ok && s == want {
			return s, nil
		}
		return nil, invalid(path, value, "not a valid value, expected '%s'", want)
	})
}

// List applies elem to every element of an array. An empty array is valid.
func List(elem Rule) Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		in, ok := value.([]any)
		if !ok {
			return nil, invalid(path, value, "expected a list")
		}

		out := make([]any, len(in))
		var errs Errors
		for i, v := range in {
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			c, err := elem.Apply(v, elemPath)
			if err != nil {
				errs = errs.add(elemPath, err)
				continue
			}
			out[i] = c
		}
		if len(errs) > 0 {
			return nil, errs
		}
		return out, nil
	})
}

// JSON decodes a JSON-encoded string before applying inner. Values that are
// not strings are assumed to be decoded already.
func JSON(inner Rule) Rule {
	return RuleFunc(func(value any, path string) (any, error) {
		s, ok := value.(string)
		if !ok {
			return inner.Apply(value, path)
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, invalid(path, value, "not valid JSON: %v", err)
		}
		return inner.Apply(decoded, path)
	})
}
