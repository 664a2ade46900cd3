package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session routing/state.
	ErrBusy     = "E_BUSY"
	ErrInternal = "E_INTERNAL"

	// Shop rules.
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"
	ErrLocked            = "E_LOCKED"
	ErrAlreadyOwned      = "E_ALREADY_OWNED"
	ErrUnknownItem       = "E_UNKNOWN_ITEM"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBusy:              {},
	ErrInternal:          {},
	ErrInsufficientFunds: {},
	ErrLocked:            {},
	ErrAlreadyOwned:      {},
	ErrUnknownItem:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
