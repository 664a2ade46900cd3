package protocol

type ItemActivatedMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Item            ItemMsg `json:"item"`
}

type ObjectSpawnedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Object          ObjectMsg `json:"object"`
}

type ObjectUpgradedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Object          ObjectMsg `json:"object"`
	MachineID       string    `json:"machine_id"`
}

type ObjectCollectedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Object          ObjectMsg `json:"object"`
	Credited        int64     `json:"credited"`
}

type BalanceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Balance         int64  `json:"balance"`
}

// SHOP: the single next purchasable item, if any.
type ShopMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	Next            *ShopRef `json:"next"`
	Affordable      bool     `json:"affordable"`
}

type ShopRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

// RELOAD tells the client to drop everything and reconnect.
type ReloadMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
}

// FRAME batches the positions of all objects moved in one tick.
type FrameMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Moves           []MoveMsg `json:"moves"`
}

type MoveMsg struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Z  float64 `json:"z"`
}
