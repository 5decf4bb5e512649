// Package order は注文送信ワークフローを提供する。
// カートのスナップショットから注文リクエストを構築して1回だけ送信し、
// 結果をカートと通知状態に反映する状態機械を含む。
package order

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/model"
)

// State は注文送信ワークフローの状態を表す。
type State string

const (
	// StateIdle は送信中でも通知表示中でもない初期状態。
	StateIdle State = "idle"
	// StateSubmitting は注文作成APIの呼び出しが進行中の状態。
	StateSubmitting State = "submitting"
	// StateSucceeded は送信成功の通知を表示中の状態。表示窓の経過後Idleへ戻る。
	StateSucceeded State = "succeeded"
	// StateFailed は送信失敗の通知を表示中の状態。表示窓の経過後Idleへ戻る。
	StateFailed State = "failed"
)

// OrderCreator は注文作成APIの呼び出しインターフェース。
// upstream.Boundが実装する。
type OrderCreator interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)
}

// Submitter は1つのカートに対する注文送信の状態機械。
// 同時に進行できる送信は1件のみで、送信中の再送信は
// ネットワーク呼び出しを行わずに拒否される（二重クリック対策）。
type Submitter struct {
	creator      OrderCreator
	cart         *cart.Store
	collector    metrics.MetricsCollector
	noticeWindow time.Duration

	mu        sync.Mutex
	state     State
	lastOrder *model.Order
	lastError *model.APIError
	epoch     int // 通知の自動復帰タイマーの世代。古いタイマーの発火を無効化する
}

// NewSubmitter はSubmitterを生成する。
// noticeWindowは成功・失敗通知がIdleへ自動復帰するまでの表示時間。
func NewSubmitter(creator OrderCreator, cartStore *cart.Store, collector metrics.MetricsCollector, noticeWindow time.Duration) *Submitter {
	return &Submitter{
		creator:      creator,
		cart:         cartStore,
		collector:    collector,
		noticeWindow: noticeWindow,
		state:        StateIdle,
	}
}

// Submit はカートの内容を注文として送信する。
//
// カートが空の場合はネットワーク呼び出しを行わずEMPTY_CARTを返す。
// 送信中に再度呼ばれた場合もネットワーク呼び出しを行わずSUBMISSION_IN_FLIGHTを返す。
// リクエストには商品IDと数量のみを含める。クライアント保持の価格は
// 金額計算に信頼できないため送信しない。
//
// 成功時はカートを空にしてSucceededへ遷移し、表示窓の経過後Idleへ自動復帰する。
// 失敗時はカートを変更せずFailedへ遷移する（ユーザーは再試行できる）。
func (s *Submitter) Submit(ctx context.Context) (*model.Order, error) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, model.NewEmptyCartError()
	}

	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, model.NewSubmissionInFlightError()
	}
	s.state = StateSubmitting
	s.lastOrder = nil
	s.lastError = nil
	s.mu.Unlock()

	req := model.OrderRequest{
		Items: make([]model.OrderRequestItem, 0, len(lines)),
	}
	for _, l := range lines {
		req.Items = append(req.Items, model.OrderRequestItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}

	created, err := s.creator.CreateOrder(ctx, req)
	if err != nil {
		s.collector.RecordOrderFailed()
		apiErr := asAPIError(err)

		slog.Warn("order submission failed",
			slog.String("code", apiErr.Code),
			slog.Int("line_count", len(lines)),
		)

		s.transition(StateFailed, nil, apiErr)
		return nil, apiErr
	}

	// 成功した注文の明細はカートから取り除く
	s.cart.Clear()
	s.collector.RecordOrderSubmitted()

	slog.Info("order submitted",
		slog.Int64("order_id", created.ID),
		slog.Int("line_count", len(lines)),
	)

	s.transition(StateSucceeded, created, nil)
	return created, nil
}

// Dismiss は表示中の成功・失敗通知を明示的に閉じ、Idleへ戻す。
// Idle・Submittingの場合は何もしない。
func (s *Submitter) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSucceeded || s.state == StateFailed {
		s.toIdleLocked()
	}
}

// Status は現在の状態と、表示中の注文・エラーを返す。
func (s *Submitter) Status() (State, *model.Order, *model.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastOrder, s.lastError
}

// transition は結果状態へ遷移し、表示窓経過後の自動復帰タイマーを開始する。
func (s *Submitter) transition(state State, order *model.Order, apiErr *model.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.lastOrder = order
	s.lastError = apiErr
	s.epoch++

	// 復帰前にDismissや次のSubmitが起きた場合、世代が進むためこのタイマーは無効になる
	epoch := s.epoch
	time.AfterFunc(s.noticeWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.epoch != epoch {
			return
		}
		if s.state == StateSucceeded || s.state == StateFailed {
			s.toIdleLocked()
		}
	})
}

// toIdleLocked はIdle状態へ戻す。呼び出し側がs.muを保持していること。
func (s *Submitter) toIdleLocked() {
	s.state = StateIdle
	s.lastOrder = nil
	s.lastError = nil
	s.epoch++
}

// asAPIError は任意のエラーを統一エラーフォーマットへ変換する。
// APIError以外（通信断など）は汎用のREMOTE_ERRORとして扱う。
func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewRemoteError("order", "")
}
