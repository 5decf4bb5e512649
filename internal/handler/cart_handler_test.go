package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/model"
)

func cartRouter(env *testEnv) http.Handler {
	h := NewCartHandler()
	return newHandlerRouter(env.state, func(r chi.Router) {
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Patch("/", h.ChangeQuantity)
				r.Delete("/", h.RemoveItem)
			})
		})
	})
}

// priceServer は商品ごとに固定価格を返すカタログサーバー。
func priceServer(t *testing.T, prices map[int64]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/api/products/%d", &id); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		price, ok := prices[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Product not found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(model.Product{ID: id, Name: fmt.Sprintf("Product %d", id), Price: price})
	}))
}

func addItem(t *testing.T, router http.Handler, productID int64, quantity int) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"productId":%d,"quantity":%d}`, productID, quantity)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(body)))
	return rec
}

func TestCartHandler_Get_RequiresLogin(t *testing.T) {
	env := newTestState(t, nil, nil, nil)
	router := cartRouter(env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCartHandler_AddItem_SnapshotsPrice(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 25.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	rec := addItem(t, router, 1, 2)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body cartResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Count != 1 {
		t.Fatalf("明細数 = %d, want 1", body.Count)
	}
	if body.Items[0].UnitPrice != 25.00 {
		t.Errorf("単価 = %v, want 25.00", body.Items[0].UnitPrice)
	}
	if body.Total != 50.00 {
		t.Errorf("合計 = %v, want 50.00", body.Total)
	}
}

func TestCartHandler_AddItem_MergesSameProduct(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 10.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	addItem(t, router, 1, 1)
	rec := addItem(t, router, 1, 1)

	var body cartResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Count != 1 {
		t.Errorf("明細数 = %d, want 1", body.Count)
	}
	if body.Items[0].Quantity != 2 {
		t.Errorf("数量 = %d, want 2", body.Items[0].Quantity)
	}
}

func TestCartHandler_AddItem_InvalidRequest(t *testing.T) {
	env := newTestState(t, nil, nil, []string{"client"})
	router := cartRouter(env)

	cases := map[string]string{
		"不正なJSON": "{broken",
		"数量ゼロ":    `{"productId":1,"quantity":0}`,
		"負の数量":    `{"productId":1,"quantity":-1}`,
		"商品IDなし":  `{"quantity":1}`,
	}
	for name, body := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestCartHandler_ChangeQuantity_RemovesAtZero(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 10.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	addItem(t, router, 1, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/cart/items/1",
		strings.NewReader(`{"delta":-1}`)))

	var body cartResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Count != 0 {
		t.Errorf("数量0で明細が取り除かれていない: count = %d", body.Count)
	}
}

func TestCartHandler_ChangeQuantity_Increments(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 10.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	addItem(t, router, 1, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/cart/items/1",
		strings.NewReader(`{"delta":2}`)))

	var body cartResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Items[0].Quantity != 3 {
		t.Errorf("数量 = %d, want 3", body.Items[0].Quantity)
	}
}

func TestCartHandler_RemoveItem(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 10.00, 2: 5.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	addItem(t, router, 1, 1)
	addItem(t, router, 2, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart/items/1", nil))

	var body cartResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Count != 1 {
		t.Fatalf("明細数 = %d, want 1", body.Count)
	}
	if body.Items[0].ProductID != 2 {
		t.Errorf("残った商品ID = %d, want 2", body.Items[0].ProductID)
	}
}

func TestCartHandler_Clear(t *testing.T) {
	server := priceServer(t, map[int64]float64{1: 10.00})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	addItem(t, router, 1, 3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	if !env.state.Cart.IsEmpty() {
		t.Error("クリア後もカートが空になっていない")
	}
}

func TestCartHandler_AddItem_UnknownProduct(t *testing.T) {
	server := priceServer(t, map[int64]float64{})
	defer server.Close()

	env := newTestState(t, server, nil, []string{"client"})
	router := cartRouter(env)

	rec := addItem(t, router, 99, 1)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if !env.state.Cart.IsEmpty() {
		t.Error("取得失敗なのにカートに明細が追加された")
	}
}
