package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/order"
)

// OrderHandler は注文のHTTPハンドラー。
// 注文の送信はブラウザセッションごとの送信状態機械を経由し、
// 二重送信の防止と結果通知の管理を行う。
type OrderHandler struct{}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler() *OrderHandler {
	return &OrderHandler{}
}

// submissionResponse は注文送信状態のAPIレスポンス。
type submissionResponse struct {
	State order.State     `json:"state"`
	Order *model.Order    `json:"order,omitempty"`
	Error *model.APIError `json:"error,omitempty"`
}

// Submit はカートの内容を注文として送信する。
// POST /api/orders
// 空カートと送信中の再送信は上流を呼ばずに拒否する。
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	created, err := state.Submitter.Submit(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// SubmissionStatus は注文送信の現在の状態を返す。
// GET /api/orders/submission
// ブラウザ側は成功・失敗通知の表示にこの状態を使用する。
func (h *OrderHandler) SubmissionStatus(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	st, createdOrder, apiErr := state.Submitter.Status()
	writeJSON(w, http.StatusOK, submissionResponse{
		State: st,
		Order: createdOrder,
		Error: apiErr,
	})
}

// DismissSubmission は表示中の送信結果通知を明示的に閉じる。
// POST /api/orders/submission/dismiss
func (h *OrderHandler) DismissSubmission(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	state.Submitter.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// MyOrders はログイン中ユーザーの注文一覧を取得する。
// GET /api/orders/my-orders
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orders, err := state.Upstream.MyOrders(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder は指定IDの注文を取得する。
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	found, err := state.Upstream.GetOrder(r.Context(), id)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

// ListOrders は全ユーザーの注文一覧を取得する。管理者専用。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	state, _, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	orders, err := state.Upstream.ListOrders(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}
