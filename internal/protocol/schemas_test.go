package protocol

import "testing"

func TestValidateClient_Samples(t *testing.T) {
	valid := []string{
		`{"type":"hello","protocol_version":"1.0","player_name":"aria"}`,
		`{"type":"input","keys":{"forward":true,"jump":true,"yaw":1.57}}`,
		`{"type":"melee_attack"}`,
		`{"type":"use_ability","slot_index":0,"charge_time":0.8}`,
		`{"type":"use_item","inventory_index":2}`,
		`{"type":"socket_stone","essence_id":"ESSENCE_FLAME","essence_socket_index":1,"stone_inventory_index":0}`,
		`{"type":"start_quest","quest_id":"Q_SLIME_CULL"}`,
		`{"type":"interact_npc","npc_id":"npc_1"}`,
		`{"type":"enter_portal","portal_id":"portal_1"}`,
		`{"type":"exit_dungeon"}`,
		`{"type":"collect_essence","id":"drop_3"}`,
		`{"type":"collect_stone","id":"drop_4"}`,
		`{"type":"chat","content":"hello there"}`,
	}
	for _, s := range valid {
		if err := ValidateClient([]byte(s)); err != nil {
			t.Errorf("valid message rejected: %s: %v", s, err)
		}
	}

	invalid := []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"hello","protocol_version":"1.0"}`,
		`{"type":"use_ability"}`,
		`{"type":"use_ability","slot_index":-1}`,
		`{"type":"use_item","inventory_index":"zero"}`,
		`{"type":"chat","content":""}`,
		`{"type":"start_quest"}`,
	}
	for _, s := range invalid {
		if err := ValidateClient([]byte(s)); err == nil {
			t.Errorf("invalid message accepted: %s", s)
		}
	}
}

func TestIsKnownCode(t *testing.T) {
	if !IsKnownCode(ErrProtoBadRequest) || !IsKnownCode("") {
		t.Fatalf("known codes rejected")
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatalf("unknown code accepted")
	}
}
