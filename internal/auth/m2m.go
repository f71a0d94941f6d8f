package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ms-reconciliation/internal/config"
	"ms-reconciliation/internal/logger"
	"ms-reconciliation/internal/models"
)

// FetchPlatformToken runs the client-credentials grant against the
// platform's auth server and returns the raw token response.
func FetchPlatformToken(ctx context.Context, cfg config.PlatformConfig, client *http.Client, log *logger.Logger) (*models.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", cfg.ClientID)
	data.Set("client_secret", cfg.ClientSecret)
	if cfg.Scopes != "" {
		data.Set("scope", cfg.Scopes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.AuthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	log.Info("AUTH", fmt.Sprintf("Requesting platform token from %s with client_id %s", cfg.AuthURL, cfg.ClientID))
	resp, err := client.Do(req)
	if err != nil {
		log.Error("AUTH", fmt.Sprintf("Token request to platform auth server failed: %v", err))
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn("AUTH", fmt.Sprintf("Error closing token response body: %v", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Error("AUTH", fmt.Sprintf("Platform auth server answered %s: %s", resp.Status, string(bodyBytes)))
		return nil, fmt.Errorf("failed to get platform token, status: %s", resp.Status)
	}

	var tokenResp models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("platform auth server returned an empty access token")
	}

	return &tokenResp, nil
}

// TokenSource hands out bearer tokens for platform calls, fetching a new
// one only when the cached token has expired. With no cache configured
// every call fetches fresh.
type TokenSource struct {
	Config config.PlatformConfig
	Client *http.Client
	Cache  *RedisTokenCache
	Logger *logger.Logger
}

func NewTokenSource(cfg config.PlatformConfig, client *http.Client, cache *RedisTokenCache, log *logger.Logger) *TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenSource{Config: cfg, Client: client, Cache: cache, Logger: log}
}

// Token implements platform.TokenSource.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if s.Cache != nil {
		cached, err := s.Cache.GetToken(ctx)
		if err != nil {
			s.Logger.Warn("AUTH", fmt.Sprintf("Token cache lookup failed, fetching fresh token: %v", err))
		} else if cached != nil {
			return cached.Token, nil
		}
	}

	tokenResp, err := FetchPlatformToken(ctx, s.Config, s.Client, s.Logger)
	if err != nil {
		return "", err
	}

	if s.Cache != nil {
		if err := s.Cache.SetToken(ctx, tokenResp.AccessToken, tokenResp.ExpiresIn); err != nil {
			s.Logger.Warn("AUTH", fmt.Sprintf("Failed to cache platform token: %v", err))
		}
	}
	return tokenResp.AccessToken, nil
}
