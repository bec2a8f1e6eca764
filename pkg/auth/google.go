package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/null-create/logger"
)

const defaultTokeninfoEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// IdentityCache stores verified identities keyed by a token digest so
// repeated requests with the same bearer token skip the provider round
// trip. A nil cache disables caching.
type IdentityCache interface {
	Get(ctx context.Context, key string) (*Identity, error)
	Put(ctx context.Context, key string, identity Identity, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GoogleVerifier validates opaque OAuth access tokens against Google's
// tokeninfo endpoint. The HTTP client carries a bounded timeout: an
// unreachable provider is a retryable condition, not a gateway fault.
type GoogleVerifier struct {
	client   *http.Client
	endpoint string
	clientID string
	cache    IdentityCache
	log      *logger.Logger
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: defaultTokeninfoEndpoint,
		clientID: clientID,
		log:      logger.NewLogger("GOOGLE_VERIFIER", uuid.NewString()),
	}
}

// WithCache attaches a verified-token cache.
func (v *GoogleVerifier) WithCache(cache IdentityCache) *GoogleVerifier {
	v.cache = cache
	return v
}

// WithEndpoint overrides the tokeninfo URL. Used in tests.
func (v *GoogleVerifier) WithEndpoint(endpoint string) *GoogleVerifier {
	v.endpoint = endpoint
	return v
}

// tokeninfoResponse is the subset of Google's tokeninfo payload the
// gateway cares about. Numeric fields arrive as decimal strings.
type tokeninfoResponse struct {
	Aud   string `json:"aud"`
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Exp   string `json:"exp"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoAuthHeader
	}

	key := tokenDigest(token)
	if v.cache != nil {
		cached, err := v.cache.Get(ctx, key)
		if err != nil {
			v.log.Info("identity cache lookup failed: %v", err)
		} else if cached != nil {
			if cached.Expired(time.Now()) {
				// Evict so a refreshed token with the same digest lifetime
				// does not keep resolving to the stale entry.
				if err := v.cache.Delete(ctx, key); err != nil {
					v.log.Info("identity cache eviction failed: %v", err)
				}
				return Identity{}, ErrExpiredCredential
			}
			return *cached, nil
		}
	}

	identity, err := v.lookup(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	if v.cache != nil {
		ttl := time.Until(identity.ExpiresAt)
		if ttl > 0 {
			if err := v.cache.Put(ctx, key, identity, ttl); err != nil {
				v.log.Info("identity cache store failed: %v", err)
			}
		}
	}
	return identity, nil
}

func (v *GoogleVerifier) lookup(ctx context.Context, token string) (Identity, error) {
	reqURL := fmt.Sprintf("%s?access_token=%s", v.endpoint, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Identity{}, fmt.Errorf("%w: tokeninfo returned %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		// Google reports both malformed and expired tokens as 4xx. The
		// body is not consulted, so a non-JSON error page still maps to
		// a credential rejection rather than a retryable fault.
		return Identity{}, ErrInvalidCredential
	}

	var info tokeninfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if v.clientID != "" && info.Aud != v.clientID {
		return Identity{}, ErrInvalidCredential
	}

	expSecs, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}
	expiresAt := time.Unix(expSecs, 0)
	if expiresAt.Before(time.Now()) {
		return Identity{}, ErrExpiredCredential
	}

	return Identity{
		Subject:   info.Sub,
		Issuer:    "accounts.google.com",
		ExpiresAt: expiresAt,
		Claims: map[string]any{
			"email": info.Email,
			"aud":   info.Aud,
		},
	}, nil
}

// tokenDigest keys the cache without storing the raw credential.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "atlas:token:" + hex.EncodeToString(sum[:])
}
