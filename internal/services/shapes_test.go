package services

import (
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	listKeys := []string{"calls", "items"}
	envelope := Candidate{Path: "/e", Shape: ShapeEnvelope, ListKeys: listKeys}
	bare := Candidate{Path: "/b", Shape: ShapeBare, ListKeys: listKeys}

	tests := []struct {
		name      string
		candidate Candidate
		body      string
		single    bool
		wantRows  int
		wantErr   bool
	}{
		{"envelope with array", envelope, `{"resource":"calls","status":"success","response":[{"id":1},{"id":2}]}`, false, 2, false},
		{"envelope with list key", envelope, `{"status":"success","response":{"items":[{"id":1}]}}`, false, 1, false},
		{"envelope empty list", envelope, `{"status":"success","response":[]}`, false, 0, false},
		{"envelope error status", envelope, `{"status":"error","response":[{"id":1}]}`, false, 0, true},
		{"envelope without response", envelope, `{"status":"success"}`, false, 0, true},
		{"envelope expected but array", envelope, `[{"id":1}]`, false, 0, true},
		{"envelope object without list", envelope, `{"status":"success","response":{"other":1}}`, false, 0, true},
		{"bare array", bare, `[{"id":1},{"id":2},{"id":3}]`, false, 3, false},
		{"bare object with list key", bare, `{"calls":[{"id":1}],"total":1}`, false, 1, false},
		{"bare list skips scalars", bare, `[{"id":1}, 5]`, false, 1, false},
		{"bare list of scalars", bare, `[1, 2]`, false, 0, true},
		{"bare string", bare, `"nope"`, false, 0, true},
		{"single bare object", bare, `{"user_id":"u"}`, true, 1, false},
		{"single nested object", Candidate{Shape: ShapeEnvelope, ListKeys: []string{"account"}}, `{"status":"ok","response":{"account":{"id":"a"}}}`, true, 1, false},
		{"single from array", bare, `[{"id":"a"},{"id":"b"}]`, true, 1, false},
		{"single from empty array", bare, `[]`, true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok := decodeJSON([]byte(tt.body))
			if !ok {
				t.Fatalf("test body is not JSON: %s", tt.body)
			}

			d, err := parseResponse(data, tt.candidate, tt.single)
			if tt.wantErr {
				if !errors.Is(err, errUnparsable) {
					t.Fatalf("expected unparsable error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(d.records()); got != tt.wantRows {
				t.Errorf("expected %d rows, got %d", tt.wantRows, got)
			}
		})
	}
}
