package storage

import "github.com/dco-chess/analysis-service/internal/apperr"

// ErrNotFound is returned by single-row lookups when the key is absent.
// It carries apperr.KindNotFound so handlers can branch with apperr.Is
// instead of comparing against this value directly.
var ErrNotFound = apperr.New(apperr.KindNotFound, "no row for that key", nil)
