package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
	// NoFrames skips per-tick FRAME messages for clients that only render
	// spawn/collect events.
	NoFrames bool `json:"no_frames,omitempty"`
}

// WELCOME (server -> client): the full state a client renders before events.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Tick            uint64      `json:"tick"`
	Params          Params      `json:"params"`
	Catalog         CatalogMsg  `json:"catalog"`
	State           StateMsg    `json:"state"`
	Shop            ShopMsg     `json:"shop"`
	Objects         []ObjectMsg `json:"objects"`
}

type Params struct {
	TickRateHz   int                `json:"tick_rate_hz"`
	ProgressStep float64            `json:"progress_step"`
	Collector    Vec2               `json:"collector"`
	Lanes        map[string]float64 `json:"lanes"`
	TuningDigest string             `json:"tuning_digest"`
}

type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type CatalogMsg struct {
	Digest string    `json:"digest"`
	Items  []ItemMsg `json:"items"`
}

// ItemMsg is one catalog entry. Effect fields are set according to Kind.
type ItemMsg struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Cost       int64   `json:"cost"`
	Requires   string  `json:"requires,omitempty"`
	Value      int64   `json:"value,omitempty"`
	IntervalMS int64   `json:"interval_ms,omitempty"`
	Factor     int64   `json:"factor,omitempty"`
	Lane       string  `json:"lane,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Model      string  `json:"model,omitempty"`
	Color      string  `json:"color,omitempty"`
}

type StateMsg struct {
	Balance          int64    `json:"balance"`
	Owned            []string `json:"owned"`
	GlobalMultiplier int64    `json:"global_multiplier"`
}

type ObjectMsg struct {
	ID        uint64  `json:"id"`
	Source    string  `json:"source"`
	Lane      string  `json:"lane"`
	BaseValue int64   `json:"base_value"`
	Value     int64   `json:"value"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
}

// PURCHASE (client -> server)
type PurchaseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	ItemID          string `json:"item_id"`
}

// COLLECT and RESET (client -> server) carry no payload.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	ReqID           string `json:"req_id,omitempty"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
	Balance         int64  `json:"balance"`
}
