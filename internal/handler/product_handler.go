package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

// ProductHandler は商品カタログのHTTPハンドラー。
// 商品データは上流カタログAPIから取得し、名前と説明文を
// サニタイズしてからブラウザに返す。
type ProductHandler struct {
	sanitizer security.ProductSanitizer
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(sanitizer security.ProductSanitizer) *ProductHandler {
	return &ProductHandler{sanitizer: sanitizer}
}

// sanitizeProduct は商品の表示用テキストをサニタイズする。
func (h *ProductHandler) sanitizeProduct(p model.Product) model.Product {
	p.Name = h.sanitizer.SanitizeName(p.Name)
	p.Description = h.sanitizer.SanitizeDescription(p.Description)
	return p
}

// sanitizeProducts は商品一覧の表示用テキストをサニタイズする。
func (h *ProductHandler) sanitizeProducts(products []model.Product) []model.Product {
	result := make([]model.Product, len(products))
	for i, p := range products {
		result[i] = h.sanitizeProduct(p)
	}
	return result
}

// productIDParam はURLパラメータから商品IDを取得する。
func productIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ListProducts は商品一覧を取得する。
// GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	products, err := state.Upstream.ListProducts(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sanitizeProducts(products))
}

// GetProduct は指定IDの商品を取得する。
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id, err := productIDParam(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	product, err := state.Upstream.GetProduct(r.Context(), id)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sanitizeProduct(*product))
}

// SearchProducts は商品名の部分一致で商品を検索する。
// GET /api/products/search?name=
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")

	products, err := state.Upstream.SearchProducts(r.Context(), name)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sanitizeProducts(products))
}

// CreateProduct は商品を登録する。管理者専用。
// POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var product model.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	created, err := state.Upstream.CreateProduct(r.Context(), h.sanitizeProduct(product))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.sanitizeProduct(*created))
}

// UpdateProduct は指定IDの商品を更新する。管理者専用。
// PUT /api/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := productIDParam(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	var product model.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := state.Upstream.UpdateProduct(r.Context(), id, h.sanitizeProduct(product))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.sanitizeProduct(*updated))
}

// DeleteProduct は指定IDの商品を削除する。管理者専用。
// DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := productIDParam(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if err := state.Upstream.DeleteProduct(r.Context(), id); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
