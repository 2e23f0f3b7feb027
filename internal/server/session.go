package server

import (
	"net"
	"time"
)

// Session is the per-connection state. The accountID is the only
// authority carried across commands; client records are re-resolved
// through the store on every command so a session never holds a stale
// reference.
type Session struct {
	conn      net.Conn
	accountID string
	loginTime time.Time
	operator  bool
}

func (s *Session) authenticated() bool {
	return s.accountID != ""
}

func (s *Session) login(accountID string, operator bool) {
	s.accountID = accountID
	s.operator = operator
	s.loginTime = time.Now()
}

func (s *Session) logout() {
	s.accountID = ""
	s.operator = false
}
