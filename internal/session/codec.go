package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var claimsParser = jwt.NewParser(jwt.WithPaddingAllowed(), jwt.WithJSONNumber())

// DecodeClaims extracts identity claims from the payload segment of accessToken.
//
// The signature is NOT verified. Returns nil when the token is malformed or carries no identity claims;
// callers treat nil as "no fallback identity available".
func DecodeClaims(accessToken string) *models.IdentityClaims {
	accessToken = strings.TrimSpace(accessToken)
	if strings.Count(accessToken, ".") != 2 {
		return nil
	}

	claims := jwt.MapClaims{}
	token, _, err := claimsParser.ParseUnverified(accessToken, claims)
	switch {
	case err == nil:
	case token != nil && errors.Is(err, jwt.ErrTokenUnverifiable):
		// unknown alg: payload was still decoded
	default:
		fallback, ok := decodePayloadStd(accessToken)
		if !ok {
			return nil
		}
		claims = fallback
	}

	return identityFromClaims(claims)
}

// decodePayloadStd handles tokens whose payload uses the standard base64 alphabet.
func decodePayloadStd(accessToken string) (jwt.MapClaims, bool) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return nil, false
	}

	seg := parts[1]
	if rem := len(seg) % 4; rem > 0 {
		seg += strings.Repeat("=", 4-rem)
	}

	raw, err := base64.StdEncoding.DecodeString(seg)
	if err != nil {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	claims := jwt.MapClaims{}
	if err := dec.Decode(&claims); err != nil {
		return nil, false
	}
	return claims, true
}

func identityFromClaims(claims jwt.MapClaims) *models.IdentityClaims {
	id := &models.IdentityClaims{
		UserID:    claimString(claims["user_id"]),
		AccountID: claimInt(claims["acc_id"]),
		Email:     claimString(claims["user_name"]),
	}
	if id.UserID == "" && id.AccountID == 0 && id.Email == "" {
		return nil
	}
	return id
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func claimInt(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	}
	return 0
}
