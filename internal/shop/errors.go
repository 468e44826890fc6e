package shop

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("introuvable")
	ErrForbidden = errors.New("accès refusé")
	ErrConflict  = errors.New("conflit d'écriture")

	// ErrCartUnchanged est renvoyé par une mutation de panier qui n'a rien à écrire.
	ErrCartUnchanged = errors.New("panier inchangé")
)

// ValidationError est une erreur de saisie : l'opération est abandonnée avant toute écriture.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation indique si err est (ou enveloppe) une ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
