package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"

	// client -> server
	TypePurchase = "PURCHASE"
	TypeCollect  = "COLLECT"
	TypeReset    = "RESET"

	// server -> client
	TypeAck             = "ACK"
	TypeItemActivated   = "ITEM_ACTIVATED"
	TypeObjectSpawned   = "OBJECT_SPAWNED"
	TypeObjectUpgraded  = "OBJECT_UPGRADED"
	TypeObjectCollected = "OBJECT_COLLECTED"
	TypeBalance         = "BALANCE"
	TypeShop            = "SHOP"
	TypeReload          = "RELOAD"
	TypeFrame           = "FRAME"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
