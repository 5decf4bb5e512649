// Package model はドメインモデルを定義する。
package model

import "time"

// OrderStatus は注文サービス側の注文状態を表す。
type OrderStatus string

const (
	// OrderStatusPending は受付済みの注文状態。
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed は確定済みの注文状態。
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusProcessing は処理中の注文状態。
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped は発送済みの注文状態。
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered は配達完了の注文状態。
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled はキャンセル済みの注文状態。
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order は注文サービスが保持する注文レコードを表す。
// 金額・状態の正は常にサーバー側にあり、ストアフロントは表示のみを行う。
type Order struct {
	ID          int64       `json:"id"`
	OrderDate   time.Time   `json:"orderDate"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"createdAt,omitzero"`
	UpdatedAt   time.Time   `json:"updatedAt,omitzero"`
}

// OrderItem は注文に含まれる商品明細を表す。
type OrderItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderRequest は注文作成APIに送信するリクエストボディを表す。
// カートのスナップショットから1度だけ構築され、以後変更されない。
// 単価は意図的に含めない。金額計算はサーバーの責務であり、
// クライアント保持の価格を信頼してはならない。
type OrderRequest struct {
	Items []OrderRequestItem `json:"items"`
}

// OrderRequestItem は注文リクエストの1明細を表す。
type OrderRequestItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}
