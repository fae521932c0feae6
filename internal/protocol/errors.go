package protocol

// Close/diagnostic codes. Invalid gameplay requests are silent no-ops
// by design; these codes cover the transport handshake and diagnostics
// only.
const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadVersion      = "E_BAD_VERSION"
	ErrNameTaken       = "E_NAME_TAKEN"
	ErrRoomFull        = "E_ROOM_FULL"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadVersion:      {},
	ErrNameTaken:       {},
	ErrRoomFull:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
