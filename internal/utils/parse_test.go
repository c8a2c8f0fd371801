package utils

import "testing"

func TestParseToolArguments_ValidJSON(t *testing.T) {
	got, err := ParseToolArguments(`{"pattern":"**/*.go","limit":10}`)
	if err != nil {
		t.Fatalf("ParseToolArguments: %v", err)
	}
	if got["pattern"] != "**/*.go" || got["limit"] != float64(10) {
		t.Errorf("ParseToolArguments() = %v", got)
	}
}

func TestParseToolArguments_RepairsUnquotedKeys(t *testing.T) {
	got, err := ParseToolArguments(`{path: "a.go", offset: 3}`)
	if err != nil {
		t.Fatalf("ParseToolArguments: %v", err)
	}
	if got["path"] != "a.go" || got["offset"] != float64(3) {
		t.Errorf("ParseToolArguments() = %v", got)
	}
}

func TestParseToolArguments_RepairsTruncatedObject(t *testing.T) {
	got, err := ParseToolArguments(`{"branch": "main"`)
	if err != nil {
		t.Fatalf("ParseToolArguments: %v", err)
	}
	if got["branch"] != "main" {
		t.Errorf("ParseToolArguments() = %v", got)
	}
}

func TestParseToolArguments_RepairsTrailingComma(t *testing.T) {
	got, err := ParseToolArguments(`{"query": "func Foo",}`)
	if err != nil {
		t.Fatalf("ParseToolArguments: %v", err)
	}
	if got["query"] != "func Foo" {
		t.Errorf("ParseToolArguments() = %v", got)
	}
}

func TestParseToolArguments_UnrepairableInputErrors(t *testing.T) {
	if _, err := ParseToolArguments("this is not json at all and has no closing anything"); err == nil {
		t.Fatal("expected error for unrepairable input, got nil")
	}
}
