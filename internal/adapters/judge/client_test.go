package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/core"
)

func judgeServer(t *testing.T, status int, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req core.JudgeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "j1", req.JobID)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Judge(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		response   string
		okExpr     string
		reasonExpr string
		want       *core.JudgeVerdict
		wantErr    string
	}{
		{
			name:     "default expressions",
			status:   http.StatusOK,
			response: `{"ok": true, "reason": "looks right"}`,
			want:     &core.JudgeVerdict{OK: true, Reason: "looks right"},
		},
		{
			name:       "nested verdict",
			status:     http.StatusOK,
			response:   `{"result": {"verdict": "REJECTED", "explanations": ["missing tests"]}}`,
			okExpr:     "result.verdict",
			reasonExpr: "result.explanations[0]",
			want:       &core.JudgeVerdict{OK: false, Reason: "missing tests"},
		},
		{
			name:     "no verdict",
			status:   http.StatusOK,
			response: `{"something": "else"}`,
			wantErr:  "no verdict",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			response: `{"ok": true}`,
			wantErr:  "unexpected status 502",
		},
		{
			name:     "not json",
			status:   http.StatusOK,
			response: `<html>`,
			wantErr:  "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := judgeServer(t, tt.status, tt.response)
			c, err := NewClient(Options{Endpoint: srv.URL, OKExpr: tt.okExpr, ReasonExpr: tt.reasonExpr})
			require.NoError(t, err)

			got, err := c.Judge(context.Background(), core.JudgeRequest{JobID: "j1", Title: "t", Submission: "s"})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ClientCredentials(t *testing.T) {
	tokenCalls := 0
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	judgeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":"pass"}`))
	}))
	defer judgeSrv.Close()

	c, err := NewClient(Options{
		Endpoint: judgeSrv.URL,
		OAuth:    &OAuthConfig{TokenURL: tokenSrv.URL, ClientID: "wm", ClientSecret: "secret"},
	})
	require.NoError(t, err)

	for range 2 {
		got, err := c.Judge(context.Background(), core.JudgeRequest{JobID: "j1"})
		require.NoError(t, err)
		assert.True(t, got.OK)
	}
	assert.Equal(t, 1, tokenCalls, "token is cached between calls")
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{Endpoint: "ftp://judge"})
	assert.Error(t, err)

	_, err = NewClient(Options{Endpoint: "https://judge.internal", OKExpr: "foo[?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JMESPath")
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in          any
		ok, decided bool
	}{
		{true, true, true},
		{false, false, true},
		{float64(1), true, true},
		{"Approved", true, true},
		{"fail", false, true},
		{"maybe", false, false},
		{nil, false, false},
	}
	for _, tt := range tests {
		ok, decided := truthy(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.decided, decided, "%v", tt.in)
	}
}
