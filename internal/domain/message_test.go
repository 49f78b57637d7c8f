package domain

import (
	"encoding/json"
	"testing"
)

func TestUserTurn(t *testing.T) {
	turn := UserTurn("What is 2+2?")
	if turn.Role != RoleUser {
		t.Errorf("role = %q, want %q", turn.Role, RoleUser)
	}
	if len(turn.Parts) != 1 || turn.Parts[0].Text != "What is 2+2?" || !turn.Parts[0].IsText() {
		t.Errorf("unexpected parts: %+v", turn.Parts)
	}
}

func TestPartJSONCarriesOneField(t *testing.T) {
	data, err := json.Marshal(CallPart("list_dir", map[string]any{"path": "."}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"functionCall":{"name":"list_dir","args":{"path":"."}}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	data, err = json.Marshal(ResponsePart("list_dir", map[string]any{"error": "slow"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want = `{"functionResponse":{"name":"list_dir","response":{"error":"slow"}}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
