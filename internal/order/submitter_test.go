package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
)

// fakeCreator はテスト用のOrderCreator実装。
type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	lastReq model.OrderRequest
	order   *model.Order
	err     error
	block   chan struct{} // 非nilの場合、クローズされるまで呼び出しをブロックする
}

func (f *fakeCreator) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCart(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.NewStore()
	store.Add(model.Product{ID: 1, Name: "Keyboard", Price: 25.00}, 2)
	store.Add(model.Product{ID: 2, Name: "Mouse", Price: 5.00}, 1)
	return store
}

func TestSubmitter_EmptyCart_NoNetworkCall(t *testing.T) {
	creator := &fakeCreator{}
	s := NewSubmitter(creator, cart.NewStore(), metrics.Nop{}, time.Second)

	_, err := s.Submit(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyCart {
		t.Fatalf("エラーコードが %s ではない: %v", model.ErrCodeEmptyCart, err)
	}
	if creator.callCount() != 0 {
		t.Errorf("空カートなのに注文APIが呼ばれた: %d回", creator.callCount())
	}
	if state, _, _ := s.Status(); state != StateIdle {
		t.Errorf("state = %s, want %s", state, StateIdle)
	}
}

func TestSubmitter_Success_ClearsCart(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{order: &model.Order{ID: 10, Status: model.OrderStatusPending}}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Second)

	created, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit がエラーを返した: %v", err)
	}
	if created.ID != 10 {
		t.Errorf("order.ID = %d, want 10", created.ID)
	}

	if !store.IsEmpty() {
		t.Error("送信成功後もカートが空になっていない")
	}
	if creator.callCount() != 1 {
		t.Errorf("注文API呼び出し回数 = %d, want 1", creator.callCount())
	}

	state, order, apiErr := s.Status()
	if state != StateSucceeded {
		t.Errorf("state = %s, want %s", state, StateSucceeded)
	}
	if order == nil || order.ID != 10 {
		t.Errorf("通知中の注文が保持されていない: %v", order)
	}
	if apiErr != nil {
		t.Errorf("成功なのにエラーが保持されている: %v", apiErr)
	}
}

func TestSubmitter_RequestContainsOnlyIDAndQuantity(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{order: &model.Order{ID: 1}}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Second)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit がエラーを返した: %v", err)
	}

	req := creator.lastReq
	if len(req.Items) != 2 {
		t.Fatalf("明細数 = %d, want 2", len(req.Items))
	}
	if req.Items[0].ProductID != 1 || req.Items[0].Quantity != 2 {
		t.Errorf("items[0] = %+v, want ProductID=1 Quantity=2", req.Items[0])
	}
	if req.Items[1].ProductID != 2 || req.Items[1].Quantity != 1 {
		t.Errorf("items[1] = %+v, want ProductID=2 Quantity=1", req.Items[1])
	}
}

func TestSubmitter_Failure_KeepsCartAndServerMessage(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{err: model.NewRemoteError("order", "Insufficient stock for product 1")}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Second)

	_, err := s.Submit(context.Background())
	if err == nil {
		t.Fatal("失敗応答なのにエラーが返らなかった")
	}

	if store.IsEmpty() {
		t.Error("送信失敗なのにカートが空になった")
	}
	if store.Len() != 2 {
		t.Errorf("カートの明細数 = %d, want 2", store.Len())
	}

	state, _, apiErr := s.Status()
	if state != StateFailed {
		t.Errorf("state = %s, want %s", state, StateFailed)
	}
	if apiErr == nil || apiErr.Message != "Insufficient stock for product 1" {
		t.Errorf("サーバーメッセージが保持されていない: %v", apiErr)
	}
}

func TestSubmitter_Failure_NonAPIErrorFallsBack(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{err: errors.New("connection refused")}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Second)

	_, err := s.Submit(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラーが返った: %v", err)
	}
	if apiErr.Code != model.ErrCodeRemoteError {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeRemoteError)
	}
	if apiErr.Message == "" {
		t.Error("汎用メッセージへのフォールバックが働いていない")
	}
}

func TestSubmitter_SecondSubmitWhileInFlight_Rejected(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{
		order: &model.Order{ID: 5},
		block: make(chan struct{}),
	}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	// 1回目の送信がSubmittingに入るのを待つ
	deadline := time.After(time.Second)
	for {
		if state, _, _ := s.Status(); state == StateSubmitting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Submitting状態に遷移しなかった")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := s.Submit(context.Background())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSubmissionInFlight {
		t.Fatalf("エラーコードが %s ではない: %v", model.ErrCodeSubmissionInFlight, err)
	}

	close(creator.block)
	if err := <-done; err != nil {
		t.Fatalf("1回目の送信がエラーを返した: %v", err)
	}

	if creator.callCount() != 1 {
		t.Errorf("注文API呼び出し回数 = %d, want 1", creator.callCount())
	}
}

func TestSubmitter_Notice_AutoRevertsToIdle(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{order: &model.Order{ID: 3}}
	s := NewSubmitter(creator, store, metrics.Nop{}, 20*time.Millisecond)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit がエラーを返した: %v", err)
	}
	if state, _, _ := s.Status(); state != StateSucceeded {
		t.Fatalf("state = %s, want %s", state, StateSucceeded)
	}

	deadline := time.After(time.Second)
	for {
		if state, order, _ := s.Status(); state == StateIdle {
			if order != nil {
				t.Error("Idle復帰後も注文が保持されている")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("表示窓の経過後もIdleへ復帰しなかった")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitter_Dismiss_RevertsToIdle(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{err: model.NewRemoteError("order", "boom")}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Hour)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("失敗応答なのにエラーが返らなかった")
	}
	if state, _, _ := s.Status(); state != StateFailed {
		t.Fatalf("state = %s, want %s", state, StateFailed)
	}

	s.Dismiss()

	state, _, apiErr := s.Status()
	if state != StateIdle {
		t.Errorf("Dismiss後のstate = %s, want %s", state, StateIdle)
	}
	if apiErr != nil {
		t.Error("Dismiss後もエラーが保持されている")
	}
}

func TestSubmitter_Dismiss_NoEffectWhileIdle(t *testing.T) {
	s := NewSubmitter(&fakeCreator{}, cart.NewStore(), metrics.Nop{}, time.Second)

	s.Dismiss()

	if state, _, _ := s.Status(); state != StateIdle {
		t.Errorf("state = %s, want %s", state, StateIdle)
	}
}

func TestSubmitter_RetryAfterFailure_Succeeds(t *testing.T) {
	store := newTestCart(t)
	creator := &fakeCreator{err: model.NewRemoteError("order", "temporary")}
	s := NewSubmitter(creator, store, metrics.Nop{}, time.Hour)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("失敗応答なのにエラーが返らなかった")
	}

	// カートは残っているため、上流が回復すれば同じ内容で再送信できる
	creator.err = nil
	creator.order = &model.Order{ID: 11}

	created, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("再送信がエラーを返した: %v", err)
	}
	if created.ID != 11 {
		t.Errorf("order.ID = %d, want 11", created.ID)
	}
	if !store.IsEmpty() {
		t.Error("再送信成功後もカートが空になっていない")
	}
}
