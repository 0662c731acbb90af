package adapters

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HTTPVault uploads sealed evidence to the vault endpoint with a PUT per
// handle. A 2xx response is the durable-storage acknowledgement; the
// returned receipt is an HS256 token binding run media to its content hash
// so a notified contact (or investigator) can later verify what was stored.
//
// Retry policy lives in the pipeline, not here: one call is one attempt.
type HTTPVault struct {
	url        string
	signingKey []byte
	client     *http.Client
}

func NewHTTPVault(url string, signingKey []byte) *HTTPVault {
	return &HTTPVault{
		url:        url,
		signingKey: signingKey,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (v *HTTPVault) Upload(ctx context.Context, h *MediaHandle) (string, error) {
	payload, err := os.ReadFile(h.Path)
	if err != nil {
		return "", fmt.Errorf("vault upload %s: %w", h.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, v.url+"/evidence/"+h.ID, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("vault upload %s: %w", h.ID, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vault upload %s: %w", h.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vault upload %s: unexpected status %d", h.ID, resp.StatusCode)
	}

	return v.mintReceipt(h, payload)
}

// mintReceipt signs an upload receipt over the media identity and content
// hash. The shared key is also held by the vault, which re-verifies
// receipts presented during evidence recovery.
func (v *HTTPVault) mintReceipt(h *MediaHandle, payload []byte) (string, error) {
	sum := sha256.Sum256(payload)
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":    "haven-vault",
		"sub":    h.ID,
		"sha256": hex.EncodeToString(sum[:]),
		"size":   h.Size,
		"iat":    now.Unix(),
	})
	receipt, err := token.SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("mint receipt %s: %w", h.ID, err)
	}
	return receipt, nil
}

// VerifyReceipt parses and validates a receipt minted by mintReceipt,
// returning the media ID it covers.
func VerifyReceipt(receipt string, signingKey []byte) (string, error) {
	token, err := jwt.Parse(receipt, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify receipt: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("verify receipt: unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("verify receipt: missing subject")
	}
	return sub, nil
}
