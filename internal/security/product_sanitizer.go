// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProductSanitizer はカタログサービスから取得した商品テキストをサニタイズし、
// ブラウザに中継する前にXSSのリスクを除去する。
// カタログの編集権限は管理者にあるが、ストアフロントは上流のデータを
// 信頼せず常にサニタイズしてから返す。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ProductSanitizer は商品フィールドのサニタイズ機能のインターフェースを定義する。
// 上流カタログAPIの応答をブラウザへ中継する際に使用される。
type ProductSanitizer interface {
	// SanitizeName は商品名からすべてのHTMLタグを除去したプレーンテキストを返す。
	SanitizeName(raw string) string

	// SanitizeDescription は商品説明をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeDescription(raw string) string
}

// productSanitizer はProductSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type productSanitizer struct {
	namePolicy *bluemonday.Policy
	descPolicy *bluemonday.Policy
}

// NewProductSanitizer はProductSanitizerの新しいインスタンスを生成する。
// 商品名にはStrictPolicy（全タグ除去）、商品説明には最小限の
// 整形タグのみを許可するカスタムポリシーを使用する。
func NewProductSanitizer() *productSanitizer {
	desc := bluemonday.NewPolicy()

	// 整形タグのみ許可。リンク・画像は商品説明に不要なため許可しない。
	// script, iframe, style等は許可リストに含めないことで自動的に除去され、
	// on*イベント属性もbluemondayのデフォルトで除去される。
	desc.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &productSanitizer{
		namePolicy: bluemonday.StrictPolicy(),
		descPolicy: desc,
	}
}

// SanitizeName は商品名からすべてのHTMLタグを除去したプレーンテキストを返す。
func (s *productSanitizer) SanitizeName(raw string) string {
	return s.namePolicy.Sanitize(raw)
}

// SanitizeDescription は商品説明をサニタイズして安全なHTMLを返す。
func (s *productSanitizer) SanitizeDescription(raw string) string {
	return s.descPolicy.Sanitize(raw)
}
