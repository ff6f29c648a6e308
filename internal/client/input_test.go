package client

import "testing"

func TestParseLineCommand(t *testing.T) {
	a := ParseLine(":kill build")
	if a.Kind != ActionCommand || a.Command != "kill" || len(a.Args) != 1 || a.Args[0] != "build" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestParseLineSwitchActive(t *testing.T) {
	a := ParseLine("@build")
	if a.Kind != ActionSwitchActive || a.Target != "build" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestParseLineWriteNamed(t *testing.T) {
	a := ParseLine("@build: make test")
	if a.Kind != ActionWriteNamed || a.Target != "build" || a.Text != "make test" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestParseLineWriteActive(t *testing.T) {
	a := ParseLine("ls -la")
	if a.Kind != ActionWriteActive || a.Text != "ls -la" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestParseLineEmpty(t *testing.T) {
	a := ParseLine("")
	if a.Kind != ActionNone {
		t.Fatalf("expected ActionNone for empty line, got %+v", a)
	}
}

func TestParseLineBareColon(t *testing.T) {
	a := ParseLine(":")
	if a.Kind != ActionNone {
		t.Fatalf("expected ActionNone for bare colon, got %+v", a)
	}
}
