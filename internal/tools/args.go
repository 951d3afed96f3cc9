package tools

// Argument coercion is best-effort by contract: missing or wrong-typed
// fields degrade to zero values rather than failing, so a hallucinated
// payload produces a harmless tool result instead of a hard error.

// Str returns args[key] as a string, or def when absent or mistyped.
func Str(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

// Int returns args[key] as an int. JSON numbers arrive as float64.
func Int(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// StrList returns args[key] as a string slice, dropping non-string
// elements. Absent or mistyped values yield an empty slice.
func StrList(args map[string]any, key string) []string {
	list, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
