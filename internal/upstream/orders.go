package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
)

// serviceOrder は注文API呼び出しのメトリクス・エラーカテゴリ名。
const serviceOrder = "order"

// CreateOrder は注文を作成する。
// POST /api/orders
// リクエストには商品IDと数量のみを含める。金額はサーバーが算出する。
func (b *Bound) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	var order model.Order
	if err := b.do(ctx, serviceOrder, http.MethodPost, "/api/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// MyOrders はログイン中ユーザーの注文一覧を取得する。
// GET /api/orders/my-orders
func (b *Bound) MyOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := b.do(ctx, serviceOrder, http.MethodGet, "/api/orders/my-orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder は指定IDの注文を取得する。
// GET /api/orders/{id}
func (b *Bound) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := b.do(ctx, serviceOrder, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders は全ユーザーの注文一覧を取得する。管理者専用。
// GET /api/orders
func (b *Bound) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := b.do(ctx, serviceOrder, http.MethodGet, "/api/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
