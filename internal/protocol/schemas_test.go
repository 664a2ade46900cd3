package protocol_test

import (
	"encoding/json"
	"testing"

	"factorytycoon.dev/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	valid := []string{
		`{"type":"HELLO","protocol_version":"1.0","client_name":"web","capabilities":{"max_queue":32}}`,
		`{"type":"HELLO","protocol_version":"1.0"}`,
		`{"type":"PURCHASE","protocol_version":"1.0","req_id":"r1","item_id":"dropper1"}`,
		`{"type":"COLLECT","protocol_version":"1.0"}`,
		`{"type":"RESET","protocol_version":"1.0","req_id":"r9"}`,
		`{"type":"ACK","protocol_version":"1.0","ack_for":"PURCHASE","req_id":"r1","accepted":false,"code":"E_INSUFFICIENT_FUNDS","balance":5}`,
		`{"type":"FRAME","protocol_version":"1.0","tick":12,"moves":[{"id":1,"x":-5.45,"z":0}]}`,
		`{
		  "type":"WELCOME","protocol_version":"1.0","session_id":"s1","tick":0,
		  "params":{"tick_rate_hz":60,"progress_step":0.05,"collector":{"x":4.75,"z":-1.25},"lanes":{"main":0,"void":-2.5},"tuning_digest":"ab"},
		  "catalog":{"digest":"cd","items":[{"id":"dropper1","name":"Dropper","kind":"source","cost":0,"value":5,"interval_ms":2000,"lane":"main","x":-5.5,"y":1}]},
		  "state":{"balance":0,"owned":[],"global_multiplier":1},
		  "shop":{"next":{"id":"dropper1","name":"Dropper","cost":0},"affordable":true},
		  "objects":[]
		}`,
	}
	for _, raw := range valid {
		if err := v.Validate([]byte(raw)); err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
	}

	invalid := []string{
		`{"type":"PURCHASE","protocol_version":"1.0"}`,
		`{"type":"PURCHASE","protocol_version":"1.0","item_id":""}`,
		`{"type":"COLLECT","protocol_version":"1.0","amount":1000}`,
		`{"type":"HELLO"}`,
		`{"type":"TELEPORT","protocol_version":"1.0"}`,
		`[1,2,3]`,
		`{"type":"ACK","protocol_version":"1.0","ack_for":"PURCHASE","accepted":false,"code":"E_NOPE","balance":0}`,
	}
	for _, raw := range invalid {
		if err := v.Validate([]byte(raw)); err == nil {
			t.Fatalf("expected validation failure for %s", raw)
		}
	}
}

func TestSchemas_MessagesRoundTripThroughValidator(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	msgs := []any{
		protocol.PurchaseMsg{Type: protocol.TypePurchase, ProtocolVersion: protocol.Version, ItemID: "walls1"},
		protocol.CommandMsg{Type: protocol.TypeReset, ProtocolVersion: protocol.Version},
		protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: protocol.TypeCollect, Accepted: true, Balance: 1},
		protocol.FrameMsg{Type: protocol.TypeFrame, ProtocolVersion: protocol.Version, Tick: 3, Moves: []protocol.MoveMsg{{ID: 2, X: 1, Z: -2.5}}},
	}
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := v.Validate(b); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"PURCHASE","protocol_version":"1.0","req_id":"x","item_id":"a"}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if m.Type != protocol.TypePurchase || m.ReqID != "x" {
		t.Fatalf("unexpected base: %+v", m)
	}
}
