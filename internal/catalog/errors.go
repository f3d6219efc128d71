package catalog

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidTicketType = errors.New("invalid ticket type")
)
