// Package identity は認証サーバー（Keycloak）との連携機能を提供する。
// パスワードグラントによるトークンエンドポイント呼び出しを含む。
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// Client は認証サーバーのトークンエンドポイントのクライアント。
// OAuth2のリソースオーナーパスワードグラントでクレデンシャルを交換する。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	endpoint     string // テスト用にエンドポイントを差し替え可能
	clientID     string
	clientSecret string
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointにはトークンエンドポイントの完全なURLを指定する
// （例: "http://localhost:8180/realms/ecommerce/protocol/openid-connect/token"）。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// tokenResponse はトークンエンドポイントの成功応答。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// tokenErrorResponse はトークンエンドポイントのエラー応答。
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange はユーザー名とパスワードをアクセスクレデンシャルに交換する。
// 認証サーバーが拒否した場合はLOGIN_FAILED（error_descriptionがあればそれを表示）を返す。
// 通信自体に失敗した場合はラップしたエラーを返す。
func (c *Client) Exchange(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("token endpoint call failed",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("token endpoint call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp tokenErrorResponse
		// エラーボディが読めなくても汎用メッセージで返す
		_ = json.Unmarshal(body, &errResp)

		c.logger.Warn("credential exchange rejected",
			slog.Int("http_status", resp.StatusCode),
			slog.String("oauth_error", errResp.Error),
		)
		return "", model.NewLoginFailedError(errResp.ErrorDescription)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response did not contain an access token")
	}

	return tok.AccessToken, nil
}
