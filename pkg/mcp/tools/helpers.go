package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	val, _ := arguments(req)[key].(string)
	return strings.TrimSpace(val)
}

// getOptionalInt extracts an optional integer argument. JSON numbers arrive
// as float64.
func getOptionalInt(req mcp.CallToolRequest, key string) (int, bool) {
	val, ok := arguments(req)[key].(float64)
	if !ok {
		return 0, false
	}
	return int(val), true
}

// getStringSlice extracts an array of strings. Non-string items are an error.
func getStringSlice(req mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := arguments(req)[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

// getStringMap extracts an object whose values are all strings.
func getStringMap(req mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := arguments(req)[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object of strings", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s.%s must be a string", key, k)
		}
		out[k] = s
	}
	return out, nil
}
