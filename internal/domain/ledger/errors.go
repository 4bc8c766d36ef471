package ledger

import "errors"

var ErrEntryNotFound = errors.New("ledger entry not found")
