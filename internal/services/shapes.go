package services

import (
	"errors"
	"fmt"
	"strings"
)

var errUnparsable = errors.New("unparsable response")

// responseKind tags what a body decoded into.
type responseKind int

const (
	kindList responseKind = iota
	kindObject
)

// decoded is a response body parsed once against a candidate's declared [Shape].
type decoded struct {
	kind   responseKind
	items  []map[string]any
	object map[string]any
}

// records returns the decoded rows: the list, or the single object as a one-element list.
func (d decoded) records() []map[string]any {
	if d.kind == kindObject {
		return []map[string]any{d.object}
	}
	return d.items
}

// parseResponse decodes data (a JSON value) according to c.Shape.
func parseResponse(data any, c Candidate, single bool) (decoded, error) {
	payload := data

	if c.Shape == ShapeEnvelope {
		env, ok := data.(map[string]any)
		if !ok {
			return decoded{}, fmt.Errorf("%w: envelope is not an object", errUnparsable)
		}
		if status, ok := env["status"].(string); ok && isErrorStatus(status) {
			return decoded{}, fmt.Errorf("%w: envelope status %q", errUnparsable, status)
		}
		inner, ok := env["response"]
		if !ok || inner == nil {
			return decoded{}, fmt.Errorf("%w: envelope has no response", errUnparsable)
		}
		payload = inner
	}

	return extract(payload, c.ListKeys, single)
}

func extract(payload any, listKeys []string, single bool) (decoded, error) {
	switch v := payload.(type) {
	case []any:
		items, err := objects(v)
		if err != nil {
			return decoded{}, err
		}
		if single {
			if len(items) == 0 {
				return decoded{}, fmt.Errorf("%w: empty list for single object", errUnparsable)
			}
			return decoded{kind: kindObject, object: items[0]}, nil
		}
		return decoded{kind: kindList, items: items}, nil
	case map[string]any:
		for _, key := range listKeys {
			switch nested := v[key].(type) {
			case []any:
				if single {
					return extract(nested, nil, true)
				}
				items, err := objects(nested)
				if err != nil {
					return decoded{}, err
				}
				return decoded{kind: kindList, items: items}, nil
			case map[string]any:
				if single {
					return decoded{kind: kindObject, object: nested}, nil
				}
			}
		}
		if single {
			return decoded{kind: kindObject, object: v}, nil
		}
		return decoded{}, fmt.Errorf("%w: no list under %s", errUnparsable, strings.Join(listKeys, ", "))
	default:
		return decoded{}, fmt.Errorf("%w: unexpected %T", errUnparsable, payload)
	}
}

// objects keeps the object elements of list. A non-empty list with no objects is unparsable.
func objects(list []any) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	if len(list) > 0 && len(items) == 0 {
		return nil, fmt.Errorf("%w: list holds no objects", errUnparsable)
	}
	return items, nil
}

func isErrorStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "error", "fail", "failed", "failure":
		return true
	default:
		return false
	}
}
