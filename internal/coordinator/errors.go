package coordinator

import "errors"

var (
    // ErrUnauthorized rejects a mutating call whose caller address is not
    // the configured node address. Raised before any ledger call.
    ErrUnauthorized = errors.New("caller is not the authorized node")
    // ErrNoResult means a confirmation lacked the expected decoded log.
    ErrNoResult = errors.New("no decoded result in confirmation")
    // ErrMalformedResult means a query returned a shape incompatible with
    // the expected entity (e.g. an error string instead of a record).
    ErrMalformedResult = errors.New("malformed query result")
    // ErrMismatchedLists rejects order-aligned list pairs of unequal length.
    ErrMismatchedLists = errors.New("mismatched list lengths")
)
