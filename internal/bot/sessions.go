package bot

import "sync"

// Виды эфемерных диалоговых состояний. В отличие от черновика покупки
// они не переживают перезапуск бота, и это осознанно: потерянный вопрос
// "введите причину" просто задаётся заново.
const (
	awaitRejectReason = "reject_reason"
	awaitBulkProfiles = "bulk_profiles"
	awaitAppealText   = "appeal_text"
	awaitAdminID      = "admin_id"
)

type session struct {
	Kind    string
	OrderID int
}

// sessionStore хранит диалоговые состояния администраторов и покупателей
// (ожидание причины отклонения, строк загрузки, текста апелляции).
type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]session)}
}

func (s *sessionStore) set(userID int64, kind string, orderID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session{Kind: kind, OrderID: orderID}
}

func (s *sessionStore) pop(userID int64) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	return sess, ok
}

func (s *sessionStore) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
