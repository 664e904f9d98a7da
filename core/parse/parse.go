package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs converts content into T. Primitive kinds are converted
// directly, everything else is JSON-decoded with a jsonrepair retry.
//
//	person, err := ParseStringAs[Person](`{name: 'John', age: 30}`) // repaired
//	count, err := ParseStringAs[int]("42")
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()

	switch target.Kind() {
	case reflect.String:
		if len(content) > 0 && content[0] == '{' {
			if unwrapped, err := tryUnwrapPrimitive(content); err == nil {
				content = unwrapped
			}
		}
		target.SetString(content)
		return result, nil

	case reflect.Bool:
		val, err := parsePrimitive(content, strconv.ParseBool)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		target.SetBool(val)
		return result, nil

	case reflect.Float32, reflect.Float64:
		val, err := parsePrimitive(content, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		target.SetFloat(val)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := parsePrimitive(content, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		target.SetInt(val)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := parsePrimitive(content, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		target.SetUint(val)
		return result, nil

	default:
		return result, decodeJSON(content, &result)
	}
}

// parsePrimitive runs parse on content, then on the unwrapped value when
// content is a {"type": ..., "value": ...} envelope.
func parsePrimitive[V any](content string, parse func(string) (V, error)) (V, error) {
	val, err := parse(content)
	if err == nil {
		return val, nil
	}
	if unwrapped, unwrapErr := tryUnwrapPrimitive(content); unwrapErr == nil {
		if val, unwrappedErr := parse(unwrapped); unwrappedErr == nil {
			return val, nil
		}
	}
	return val, err
}

// decodeJSON unmarshals content into target, retrying with repaired JSON and
// then with schema envelopes unwrapped.
func decodeJSON(content string, target any) error {
	err := json.Unmarshal([]byte(content), target)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return fmt.Errorf("unmarshal failed and JSON could not be repaired: %w", errors.Join(err, repairErr))
	}

	if err = json.Unmarshal([]byte(repaired), target); err == nil {
		return nil
	}

	if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
		if json.Unmarshal([]byte(unwrapped), target) == nil {
			return nil
		}
	}
	return fmt.Errorf("unmarshal repaired JSON as %T: %w", target, err)
}

// tryUnwrapPrimitive returns the value of a {"type": ..., "value": ...}
// envelope as text.
func tryUnwrapPrimitive(content string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}

	value, hasValue := data["value"]
	if _, hasType := data["type"]; !hasType || !hasValue || len(data) != 2 {
		return "", errors.New("not a schema-wrapped value")
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// unwrapSchemaValues replaces every {"type": ..., "value": X} object with X.
// Models sometimes answer with the schema's shape filled in instead of data:
//
//	{"name": {"type": "string", "value": "John"}}  =>  {"name": "John"}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
