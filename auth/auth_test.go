package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func verifierStub(t *testing.T, wantBearer string, authenticated bool, userKey, wallet string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer "+wantBearer, r.Header.Get("Authorization"))
		resp := map[string]interface{}{
			"authenticated": authenticated,
			"identity": map[string]string{
				"primaryKey":    userKey,
				"walletAddress": wallet,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRemoteVerifierAuthenticated(t *testing.T) {
	srv := verifierStub(t, "cred123", true, "fid:42", "0xAbCd")
	defer srv.Close()

	identity, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "cred123")
	require.NoError(t, err)
	require.Equal(t, "fid:42", identity.UserKey)
	// wallet is normalized for store-level uniqueness
	require.Equal(t, "0xabcd", identity.WalletAddress)
}

func TestRemoteVerifierRejected(t *testing.T) {
	srv := verifierStub(t, "cred123", false, "", "")
	defer srv.Close()

	_, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "cred123")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRemoteVerifierBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "cred123")
	require.Error(t, err)
}
