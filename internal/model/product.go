// Package model はドメインモデルを定義する。
package model

import "time"

// Product はカタログサービスが保持する商品を表す。
// ストアフロントにとっては読み取り専用であり、カート追加時に
// 単価をスナップショットする以外に状態を持たない。
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}
