package session

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// tokenFieldAliases maps the camelCase spellings some identity servers emit to the keys [oauth2] parses.
var tokenFieldAliases = map[string]string{
	"accessToken":  "access_token",
	"refreshToken": "refresh_token",
	"expiresIn":    "expires_in",
	"tokenType":    "token_type",
}

// tokenShapeTransport rewrites identity responses into the snake_case JSON shape [oauth2] expects.
//
// It lifts tokens nested under "response" or "data" and forces a JSON content type when the body is JSON.
type tokenShapeTransport struct {
	base http.RoundTripper
}

func (t *tokenShapeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil || resp.Body == nil {
		return resp, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	body = normalizeTokenBody(body)
	if json.Valid(body) {
		resp.Header.Set("Content-Type", "application/json")
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return resp, nil
}

func normalizeTokenBody(body []byte) []byte {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}

	if !hasAccessToken(fields) {
		for _, key := range []string{"response", "data"} {
			if nested, ok := fields[key].(map[string]any); ok && hasAccessToken(nested) {
				fields = nested
				break
			}
		}
	}

	for alias, canonical := range tokenFieldAliases {
		v, ok := fields[alias]
		if !ok {
			continue
		}
		if _, exists := fields[canonical]; !exists {
			fields[canonical] = v
		}
		delete(fields, alias)
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

func hasAccessToken(fields map[string]any) bool {
	_, snake := fields["access_token"]
	_, camel := fields["accessToken"]
	return snake || camel
}
