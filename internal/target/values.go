package target

// Helpers for the loosely typed values decoded from RPC replies.

// AsInt converts a decoded number.
func AsInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}

// AsBool reports the truthiness of a reply the way the server means it:
// false, nil, zero and empty collections are false.
func AsBool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if i, ok := AsInt(v); ok {
		return i != 0
	}
	return true
}

// AsString returns v when it is a string. The server encodes empty
// fields as false, which maps to "".
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsStrings keeps the string elements of a decoded array.
func AsStrings(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AsRecords converts a decoded array of structs.
func AsRecords(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
