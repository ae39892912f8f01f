package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quizdrop/quizdrop/util"
)

// ErrNotAuthenticated is returned when the verifier rejects the credential.
var ErrNotAuthenticated = errors.New("credential not authenticated")

// Identity is the resolved caller identity. The service never parses
// credentials itself; it only consumes what the verifier resolved.
type Identity struct {
	UserKey       string
	WalletAddress string
}

type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// RemoteVerifier resolves bearer credentials against an external
// token-verification endpoint.
type RemoteVerifier struct {
	client      *http.Client
	verifierURL string
}

func NewRemoteVerifier(verifierURL string) *RemoteVerifier {
	return &RemoteVerifier{
		client:      &http.Client{Timeout: 10 * time.Second},
		verifierURL: verifierURL,
	}
}

type verifyResponse struct {
	Authenticated bool `json:"authenticated"`
	Identity      struct {
		PrimaryKey    string `json:"primaryKey"`
		WalletAddress string `json:"walletAddress"`
	} `json:"identity"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifierURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if !body.Authenticated || body.Identity.PrimaryKey == "" {
		return nil, ErrNotAuthenticated
	}
	return &Identity{
		UserKey:       body.Identity.PrimaryKey,
		WalletAddress: util.NormalizeAddress(body.Identity.WalletAddress),
	}, nil
}
