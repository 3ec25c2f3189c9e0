package comms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the provider credentials.
type Config struct {
	AccountSID     string
	APIKey         string
	APIKeySecret   string
	ChatServiceSID string
	BaseURL        string
	TokenTTL       time.Duration
}

type providerClient struct {
	cfg  Config
	http *http.Client
}

// NewClient builds the REST client for the communications provider.
func NewClient(cfg Config) Client {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 4 * time.Hour
	}
	return &providerClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type conversationResponse struct {
	SID            string `json:"sid"`
	ChatServiceSID string `json:"chat_service_sid"`
}

func (c *providerClient) EnsureConversation(ctx context.Context, staffUserID, clientUserID string) (*Conversation, error) {
	form := url.Values{}
	// One conversation per staff-client pair; the provider returns the
	// existing conversation when the unique name is already taken.
	form.Set("UniqueName", fmt.Sprintf("telehealth_%s_%s", staffUserID, clientUserID))

	endpoint := c.cfg.BaseURL + "/v1/Conversations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build conversation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APIKeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("conversation request returned %d", resp.StatusCode)
	}

	var body conversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode conversation response: %w", err)
	}
	if body.ChatServiceSID == "" {
		body.ChatServiceSID = c.cfg.ChatServiceSID
	}
	return &Conversation{SID: body.SID, ChatServiceSID: body.ChatServiceSID}, nil
}

// accessGrants mirrors the provider's access-token grant payload.
type accessGrants struct {
	Identity string      `json:"identity"`
	Video    *videoGrant `json:"video,omitempty"`
	Chat     *chatGrant  `json:"chat,omitempty"`
}

type videoGrant struct {
	Room string `json:"room"`
}

type chatGrant struct {
	ServiceSID string `json:"service_sid"`
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Grants accessGrants `json:"grants"`
}

func (c *providerClient) AccessToken(identity, roomName string, conv *Conversation) (string, error) {
	grants := accessGrants{
		Identity: identity,
		Video:    &videoGrant{Room: roomName},
		Chat:     &chatGrant{ServiceSID: conv.ChatServiceSID},
	}
	return c.signToken(identity, grants)
}

func (c *providerClient) ChatToken(identity string, conv *Conversation) (string, error) {
	grants := accessGrants{
		Identity: identity,
		Chat:     &chatGrant{ServiceSID: conv.ChatServiceSID},
	}
	return c.signToken(identity, grants)
}

func (c *providerClient) signToken(identity string, grants accessGrants) (string, error) {
	now := time.Now()
	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.APIKey,
			Subject:   c.cfg.AccountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
			ID:        fmt.Sprintf("%s-%d", c.cfg.APIKey, now.Unix()),
		},
		Grants: grants,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.cfg.APIKeySecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (c *providerClient) CompleteRoom(ctx context.Context, roomName string) error {
	form := url.Values{}
	form.Set("Status", "completed")

	endpoint := fmt.Sprintf("%s/v1/Rooms/%s", c.cfg.BaseURL, url.PathEscape(roomName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build room completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APIKeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("room completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("room completion returned %d", resp.StatusCode)
	}
	return nil
}
