// Package cart はブラウザセッションごとの買い物カートを提供する。
// カートは注文送信までの一時状態であり、プロセスをまたいで永続化されない。
package cart

import (
	"sync"

	"github.com/hitoshi/storefront/internal/model"
)

// Line はカート内の1明細を表す。
// Quantityは常に1以上で、0以下になった明細は保持されず削除される。
// UnitPriceとProductNameはカート追加時点のスナップショットで表示専用。
// 金額計算の正はサーバー側にあるため、注文送信には使用しない。
type Line struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Store は商品IDで一意な明細の挿入順コレクションを保持する。
// すべての操作は同期的で失敗せず、カート自身の状態以外に副作用を持たない。
// 複数のゴルーチンから同時に呼び出しても安全。
type Store struct {
	mu    sync.RWMutex
	lines []Line // 挿入順。productIDは重複しない
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Add は商品をカートに追加する。
// 同じ商品の明細が既に存在する場合は数量を加算し、新しい明細は作らない。
// 存在しない場合は単価をスナップショットした明細を末尾に追加する。
// qtyが1未満の場合は何もしない。在庫チェックはここでは行わない（表示層の責務）。
func (s *Store) Add(product model.Product, qty int) {
	if qty < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == product.ID {
			s.lines[i].Quantity += qty
			return
		}
	}

	s.lines = append(s.lines, Line{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    qty,
		UnitPrice:   product.Price,
	})
}

// ChangeQuantity は指定商品の数量にdeltaを加算する。
// 結果が0以下になる場合は明細ごと削除する。該当明細がない場合は何もしない。
func (s *Store) ChangeQuantity(productID int64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID != productID {
			continue
		}

		newQty := s.lines[i].Quantity + delta
		if newQty <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}

		s.lines[i].Quantity = newQty
		return
	}
}

// Remove は指定商品の明細を無条件に削除する。該当明細がない場合は何もしない。
func (s *Store) Remove(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// Clear はカートを空にする。注文送信の成功後および明示的なユーザー操作で使用する。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Total は全明細の単価×数量の合計を返す。空カートの場合は0を返す。
// 表示専用の概算であり、請求金額はサーバーが算出する。
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, l := range s.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// Lines は明細の挿入順スナップショットを返す。
// 返り値は内部状態のコピーであり、呼び出し側が変更してもカートには影響しない。
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len は明細数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// IsEmpty はカートが空かを返す。
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}
