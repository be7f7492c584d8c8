package agent

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sandevgo/shopbot/internal/core"
)

type recommendArgs struct {
	Query  string
	TopK   int
	Budget float64
}

type imageArgs struct {
	Description string
	ImageURL    string
	TopK        int
}

// parseArgs decodes the model's argument string into a loose object. Models
// occasionally send an empty string for "no arguments".
func parseArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %w", core.ErrToolArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func decodeRecommendArgs(args map[string]any) (recommendArgs, error) {
	var out recommendArgs
	var err error

	// user_preferences is the historical name of the query field.
	query, ok := args["query"]
	if !ok {
		query = args["user_preferences"]
	}
	if out.Query, err = asString("query", query); err != nil {
		return out, err
	}
	if strings.TrimSpace(out.Query) == "" {
		return out, fmt.Errorf("%w: query is required", core.ErrToolArguments)
	}

	if out.TopK, err = asInt("top_k", args["top_k"]); err != nil {
		return out, err
	}
	if out.Budget, err = asFloat("budget", args["budget"]); err != nil {
		return out, err
	}
	if out.Budget < 0 {
		return out, fmt.Errorf("%w: budget must not be negative", core.ErrToolArguments)
	}
	return out, nil
}

func decodeImageArgs(args map[string]any) (imageArgs, error) {
	var out imageArgs
	var err error

	if out.Description, err = asString("description", args["description"]); err != nil {
		return out, err
	}
	if out.ImageURL, err = asString("image_url", args["image_url"]); err != nil {
		return out, err
	}
	if strings.TrimSpace(out.Description) == "" && strings.TrimSpace(out.ImageURL) == "" {
		return out, fmt.Errorf("%w: description or image_url is required", core.ErrToolArguments)
	}
	if out.TopK, err = asInt("top_k", args["top_k"]); err != nil {
		return out, err
	}
	return out, nil
}

func asString(field string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case map[string]any:
		// Some models wrap preferences in an object; flatten its values.
		parts := make([]string, 0, len(t))
		for _, k := range slices.Sorted(maps.Keys(t)) {
			parts = append(parts, fmt.Sprintf("%s %v", k, t[k]))
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %T", core.ErrToolArguments, field, v)
	}
}

func asFloat(field string, v any) (float64, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		s = t.String()
	case float64:
		return t, nil
	case string:
		s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "$¥€£"))
		if s == "" {
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", core.ErrToolArguments, field, v)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", core.ErrToolArguments, field, s)
	}
	return f, nil
}

func asInt(field string, v any) (int, error) {
	f, err := asFloat(field, v)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s out of range", core.ErrToolArguments, field)
	}
	return int(math.Round(f)), nil
}
