// Package browser はブラウザセッションごとのアプリケーション状態を管理する。
// 1つのブラウザ（Cookie）に対して認証セッション・カート・注文送信機を
// ひとまとまりのStateとして保持し、TTL経過後に回収する。
package browser

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/order"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/upstream"
)

// Deps はState生成に必要な共有依存。プロセス全体で1組を使い回す。
type Deps struct {
	Credentials  session.CredentialStore
	Exchanger    session.TokenExchanger
	Upstream     *upstream.Client
	Collector    metrics.MetricsCollector
	NoticeWindow time.Duration
}

// State は1つのブラウザセッションに属する状態一式。
type State struct {
	// ID はブラウザセッションID。Cookie値と一致する。
	ID string
	// Session は認証状態。
	Session *session.Session
	// Cart はカート。
	Cart *cart.Store
	// Submitter は注文送信の状態機械。
	Submitter *order.Submitter
	// Upstream はこのセッションのクレデンシャルで呼び出す上流APIクライアント。
	Upstream *upstream.Bound

	lastAccess time.Time
}

// Manager はブラウザセッションIDからStateへの対応を管理する。
// 最終アクセスからTTLを超えたStateはバックグラウンドで回収される。
// クレデンシャルは別途永続化されているため、State回収後の再アクセスでは
// 新しいStateに保存済みクレデンシャルが復元される。
type Manager struct {
	deps            Deps
	ttl             time.Duration
	cleanupInterval time.Duration

	mu     sync.RWMutex
	states map[string]*State

	stopCh chan struct{}
}

// NewManager はManagerを生成し、期限切れStateのクリーンアップを開始する。
func NewManager(deps Deps, ttl time.Duration) *Manager {
	m := &Manager{
		deps:            deps,
		ttl:             ttl,
		cleanupInterval: ttl / 4,
		states:          make(map[string]*State),
		stopCh:          make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (m *Manager) Stop() {
	close(m.stopCh)
}

// NewID は新しいブラウザセッションIDを生成する。
func NewID() string {
	return uuid.NewString()
}

// Acquire は指定IDのStateを取得する。存在しない場合は新規に生成する。
func (m *Manager) Acquire(id string) *State {
	m.mu.RLock()
	st, exists := m.states[id]
	m.mu.RUnlock()

	if exists {
		m.mu.Lock()
		st.lastAccess = time.Now()
		m.mu.Unlock()
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// ダブルチェック
	if st, exists := m.states[id]; exists {
		st.lastAccess = time.Now()
		return st
	}

	st = m.newState(id)
	m.states[id] = st
	return st
}

// Lookup は指定IDのStateを返す。存在しない場合はnilを返す。
func (m *Manager) Lookup(id string) *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id]
}

// Remove は指定IDのStateを破棄する。存在しない場合は何もしない。
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
}

// Count は現在保持しているStateのエントリ数を返す。
// テストおよびメトリクス用。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// newState は指定IDの状態一式を組み立てる。呼び出し側がm.muを保持していること。
func (m *Manager) newState(id string) *State {
	sess := session.New(id, m.deps.Credentials, m.deps.Exchanger)
	cartStore := cart.NewStore()
	bound := m.deps.Upstream.Bind(sess)

	return &State{
		ID:         id,
		Session:    sess,
		Cart:       cartStore,
		Submitter:  order.NewSubmitter(bound, cartStore, m.deps.Collector, m.deps.NoticeWindow),
		Upstream:   bound,
		lastAccess: time.Now(),
	}
}

// cleanupLoop はバックグラウンドで期限切れStateを定期的に回収する。
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がTTLを超えたStateを削除する。
func (m *Manager) cleanup() {
	now := time.Now()

	m.mu.Lock()
	for id, st := range m.states {
		if now.Sub(st.lastAccess) > m.ttl {
			delete(m.states, id)
		}
	}
	m.mu.Unlock()
}
