package shop

import "sacoche_back_end/internal/models"

// Session est l'identité authentifiée de l'appelant, passée explicitement à chaque opération.
type Session struct {
	Email string
	Role  string
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

func (s Session) requireAdmin() error {
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
