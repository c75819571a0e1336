package tracker

import "errors"

var (
	ErrUnknownOrder    = errors.New("order is not on the terminal")
	ErrMutationPending = errors.New("order already has a change in flight")
	ErrEmptyPatch      = errors.New("patch changes nothing")
)
