package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/storefront/internal/model"
)

// serviceCatalog はカタログAPI呼び出しのメトリクス・エラーカテゴリ名。
const serviceCatalog = "catalog"

// ListProducts は商品の一覧を取得する。
// GET /api/products
func (b *Bound) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := b.do(ctx, serviceCatalog, http.MethodGet, "/api/products", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct は指定IDの商品を取得する。
// GET /api/products/{id}
func (b *Bound) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	if err := b.do(ctx, serviceCatalog, http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SearchProducts は商品名の部分一致で商品を検索する。
// GET /api/products/search?name=
func (b *Bound) SearchProducts(ctx context.Context, name string) ([]model.Product, error) {
	query := url.Values{}
	query.Set("name", name)

	var products []model.Product
	if err := b.do(ctx, serviceCatalog, http.MethodGet, "/api/products/search", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct は商品を登録する。管理者専用。
// POST /api/products
func (b *Bound) CreateProduct(ctx context.Context, product model.Product) (*model.Product, error) {
	var created model.Product
	if err := b.do(ctx, serviceCatalog, http.MethodPost, "/api/products", nil, product, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProduct は指定IDの商品を更新する。管理者専用。
// PUT /api/products/{id}
func (b *Bound) UpdateProduct(ctx context.Context, id int64, product model.Product) (*model.Product, error) {
	var updated model.Product
	if err := b.do(ctx, serviceCatalog, http.MethodPut, fmt.Sprintf("/api/products/%d", id), nil, product, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct は指定IDの商品を削除する。管理者専用。
// DELETE /api/products/{id}
func (b *Bound) DeleteProduct(ctx context.Context, id int64) error {
	return b.do(ctx, serviceCatalog, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil, nil)
}
