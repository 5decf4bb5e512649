// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は上流呼び出しで許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// NewSafeClient はSSRF防止機能付きの上流API用HTTPクライアントを生成する。
// 上流のベースURLは運用者が設定するとはいえ、safeurlライブラリにより
// プライベートIP、ループバック、リンクローカル、メタデータIPへの
// リクエストとDNS再バインディング攻撃がブロックされる。
// extraPortsには設定済みベースURLの明示ポート（80/443以外）を渡す。
func NewSafeClient(timeout time.Duration, extraPorts ...int) *http.Client {
	ports := append([]int{80, 443}, extraPorts...)

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(ports...).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// NewPlainClient はSSRF防止なしのHTTPクライアントを生成する。
// 上流がループバックやプライベートネットワーク上にあるローカル開発環境向け。
// 本番ではNewSafeClientを使用すること。
func NewPlainClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// ValidateBaseURL は設定された上流ベースURLの形式を起動時に検証する。
// スキームがhttp/https以外、またはホストが空の場合はエラーを返す。
func ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty base URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	if parsed.Hostname() == "" {
		return fmt.Errorf("empty host in base URL: %s", rawURL)
	}

	return nil
}

// ExplicitPort はベースURLに明示されたポート番号を返す。
// ポートが明示されていない、またはURLが不正な場合は0を返す。
// NewSafeClientの許可ポートリストの構築に使用する。
func ExplicitPort(rawURL string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		return 0
	}
	return port
}
