package service

import (
	"errors"

	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
)

const (
	QuoteNumberPrefix    = "QTE"
	TrackingNumberPrefix = "SHP"

	maxNumberAttempts = 5
)

// Numbers mints caller-facing reference numbers. Nil uses idx.Number.
type Numbers func(prefix string) string

func (n Numbers) next(prefix string) string {
	if n == nil {
		return idx.Number(prefix)
	}
	return n(prefix)
}

// allocate mints numbers until insert accepts one. The store's unique index
// is the arbiter; a collision just draws again.
func (n Numbers) allocate(prefix string, insert func(number string) error) (string, error) {
	for range maxNumberAttempts {
		number := n.next(prefix)
		err := insert(number)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return number, nil
	}
	return "", ErrConflict
}
