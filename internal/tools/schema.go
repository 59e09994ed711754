package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func arrayOf(itemType, desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": itemType}, "description": desc}
}

func obj(props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props}
}

func objReq(props map[string]any, required ...string) map[string]any {
	m := obj(props)
	if required == nil {
		required = []string{}
	}
	m["required"] = required
	return m
}

// Validate checks that required arguments are present and that present
// arguments have the declared primitive type. Unknown arguments pass.
func Validate(schema map[string]any, args map[string]any) error {
	if req, ok := schema["required"].([]string); ok {
		for _, k := range req {
			if v, present := args[k]; !present || v == nil {
				return fmt.Errorf("missing required argument %q", k)
			}
		}
	}
	props, _ := schema["properties"].(map[string]any)
	for k, v := range args {
		p, ok := props[k].(map[string]any)
		if !ok || v == nil {
			continue
		}
		typ, _ := p["type"].(string)
		if !hasType(v, typ) {
			return fmt.Errorf("argument %q must be %s", k, article(typ))
		}
		if typ == "array" {
			items, _ := p["items"].(map[string]any)
			itemType, _ := items["type"].(string)
			for i, elem := range v.([]any) {
				if !hasType(elem, itemType) {
					return fmt.Errorf("argument %q element %d must be %s", k, i, article(itemType))
				}
			}
		}
	}
	return nil
}

func hasType(v any, typ string) bool {
	switch typ {
	case "":
		return true
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer":
		_, ok := toInt(v)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int64, json.Number:
			return true
		}
		return false
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}

func article(typ string) string {
	switch typ {
	case "integer", "array", "object":
		return "an " + typ
	default:
		return "a " + typ
	}
}

// toInt accepts the numeric shapes JSON decoding produces, rejecting
// fractional values.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
