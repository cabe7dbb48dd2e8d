package apiclient

import "sync"

// Session holds what a signed-in client needs between requests.
type Session struct {
	mu           sync.RWMutex
	token        string
	refreshToken string
	userName     string
	profileImage string
}

func NewSession(token, refreshToken string) *Session {
	return &Session{token: token, refreshToken: refreshToken}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) SetTokens(token, refreshToken string) {
	s.mu.Lock()
	s.token, s.refreshToken = token, refreshToken
	s.mu.Unlock()
}

func (s *Session) SetUser(name, profileImage string) {
	s.mu.Lock()
	s.userName, s.profileImage = name, profileImage
	s.mu.Unlock()
}

func (s *Session) User() (name, profileImage string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName, s.profileImage
}

func (s *Session) LoggedIn() bool { return s.Token() != "" }

// Clear forgets tokens and user details.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token, s.refreshToken, s.userName, s.profileImage = "", "", "", ""
	s.mu.Unlock()
}
