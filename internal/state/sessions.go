package state

import "botcore/internal/model"

// GetSession returns the live session for (chatID, userID), satisfying
// session.Store.
func (m *Manager) GetSession(chatID, userID string) (*model.Session, bool) {
	doc := m.Document()
	byUser, ok := doc.Sessions[chatID]
	if !ok {
		return nil, false
	}
	s, ok := byUser[userID]
	return s, ok
}

// SetSession stores s as the live session for (chatID, userID).
func (m *Manager) SetSession(chatID, userID string, s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser, ok := m.doc.Sessions[chatID]
	if !ok {
		byUser = map[string]*model.Session{}
		m.doc.Sessions[chatID] = byUser
	}
	byUser[userID] = s
}

// DeleteSession removes any live session for (chatID, userID).
func (m *Manager) DeleteSession(chatID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byUser, ok := m.doc.Sessions[chatID]; ok {
		delete(byUser, userID)
	}
}
