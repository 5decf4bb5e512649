package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// CartHandler はカート操作のHTTPハンドラー。
// カートはブラウザセッションごとにサーバー側で保持され、
// 明細の単価は追加時点の商品価格のスナップショットとなる。
type CartHandler struct{}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// cartResponse はカート内容のAPIレスポンス。
type cartResponse struct {
	Items []cart.Line `json:"items"`
	Total float64     `json:"total"`
	Count int         `json:"count"`
}

// addItemRequest はカート追加リクエストのボディ。
type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// changeQuantityRequest は数量変更リクエストのボディ。
// 正のdeltaで増量、負のdeltaで減量する。数量が0以下になる明細は取り除かれる。
type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

// newCartResponse はカートの現在の内容からAPIレスポンスを構築する。
func newCartResponse(store *cart.Store) cartResponse {
	return cartResponse{
		Items: store.Lines(),
		Total: store.Total(),
		Count: store.Len(),
	}
}

// cartItemIDParam はURLパラメータから商品IDを取得する。
func cartItemIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GetCart はカートの現在の内容を取得する。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(state.Cart))
}

// AddItem は商品をカートに追加する。
// POST /api/cart/items
// 単価は追加時点のカタログ価格をスナップショットとして記録する。
// 同じ商品を再度追加すると既存明細の数量に加算される。
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if req.ProductID <= 0 || req.Quantity < 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	// 現在のカタログ価格を取得してスナップショットする
	product, err := state.Upstream.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	state.Cart.Add(*product, req.Quantity)
	writeJSON(w, http.StatusOK, newCartResponse(state.Cart))
}

// ChangeQuantity はカート明細の数量を増減する。
// PATCH /api/cart/items/{id}
// 数量が0以下になった明細はカートから取り除かれる。
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id, err := cartItemIDParam(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if req.Delta == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	state.Cart.ChangeQuantity(id, req.Delta)
	writeJSON(w, http.StatusOK, newCartResponse(state.Cart))
}

// RemoveItem はカートから明細を取り除く。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id, err := cartItemIDParam(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	state.Cart.Remove(id)
	writeJSON(w, http.StatusOK, newCartResponse(state.Cart))
}

// ClearCart はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	state.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}
