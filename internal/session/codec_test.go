package session_test

import (
	"encoding/base64"
	"testing"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/session"
	tu "github.com/desertthunder/linesync/internal/testing"
	"github.com/stretchr/testify/require"
)

func TestDecodeClaims(t *testing.T) {
	stdPayload := base64.StdEncoding.EncodeToString([]byte(`{"user_id":"u>?","acc_id":"12","user_name":"x@y.z"}`))

	tests := []struct {
		name  string
		token string
		want  *models.IdentityClaims
	}{
		{
			name:  "all identity claims",
			token: tu.MakeToken(t, map[string]any{"user_id": "u-1", "acc_id": 42, "user_name": "a@b.com"}),
			want:  &models.IdentityClaims{UserID: "u-1", AccountID: 42, Email: "a@b.com"},
		},
		{
			name:  "account id as string",
			token: tu.MakeToken(t, map[string]any{"acc_id": "99"}),
			want:  &models.IdentityClaims{AccountID: 99},
		},
		{
			name:  "numeric user id",
			token: tu.MakeToken(t, map[string]any{"user_id": 5}),
			want:  &models.IdentityClaims{UserID: "5"},
		},
		{
			name:  "standard base64 payload",
			token: "eyJhbGciOiJub25lIn0." + stdPayload + ".sig",
			want:  &models.IdentityClaims{UserID: "u>?", AccountID: 12, Email: "x@y.z"},
		},
		{
			name:  "no identity claims",
			token: tu.MakeToken(t, map[string]any{"sub": "someone"}),
			want:  nil,
		},
		{name: "two segments", token: "aaa.bbb", want: nil},
		{name: "four segments", token: "a.b.c.d", want: nil},
		{name: "payload not base64", token: "aaa.!!!notbase64!!!.ccc", want: nil},
		{name: "payload not json", token: "aaa." + base64.RawURLEncoding.EncodeToString([]byte("plain")) + ".ccc", want: nil},
		{name: "empty", token: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, session.DecodeClaims(tt.token))
		})
	}
}
