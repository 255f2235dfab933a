package httpapi

import (
	"encoding/json"
	"strings"
	"testing"

	"stemsplit/internal/model"
)

func TestValidateRequestRequiresAudioFile(t *testing.T) {
	errs := validateRequest(model.SeparationRequest{})
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %d", len(errs))
	}
	got := errs[0]
	if strings.Join(got.Loc, ".") != "body.audio_file" {
		t.Fatalf("unexpected loc: %v", got.Loc)
	}
	if got.Msg != "field required" || got.Type != "value_error.missing" {
		t.Fatalf("unexpected error: %+v", got)
	}

	empty := ""
	if errs := validateRequest(model.SeparationRequest{AudioFile: &empty}); len(errs) != 0 {
		t.Fatalf("empty string is a valid payload, got %v", errs)
	}
}

func TestValidationErrorsForDecode(t *testing.T) {
	decodeErr := func(body string) error {
		var req model.SeparationRequest
		return json.NewDecoder(strings.NewReader(body)).Decode(&req)
	}

	cases := []struct {
		name     string
		body     string
		wantLoc  string
		wantType string
	}{
		{"empty body", ``, "body", "value_error.missing"},
		{"scalar body", `42`, "body", "type_error.dict"},
		{"string body", `"hello"`, "body", "type_error.dict"},
		{"array body", `[1,2]`, "body", "type_error.dict"},
		{"number field", `{"audio_file":123}`, "body.audio_file", "type_error.str"},
		{"object field", `{"audio_file":{"a":1}}`, "body.audio_file", "type_error.str"},
		{"truncated body", `{"audio_file":`, "body", "value_error.jsondecode"},
		{"garbage body", `not json`, "body", "value_error.jsondecode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := decodeErr(tc.body)
			if err == nil {
				t.Fatal("expected a decode error")
			}
			errs := validationErrorsForDecode(err)
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %d", len(errs))
			}
			if got := strings.Join(errs[0].Loc, "."); got != tc.wantLoc {
				t.Fatalf("unexpected loc: %q", got)
			}
			if errs[0].Type != tc.wantType {
				t.Fatalf("unexpected type: %q", errs[0].Type)
			}
		})
	}
}
