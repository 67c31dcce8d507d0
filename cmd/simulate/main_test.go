package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/service"
)

func TestSimulate_Complete(t *testing.T) {
	var out bytes.Buffer
	err := simulate(context.Background(), &out, options{Direction: "N", Commands: "ff"})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Start: 0 0 facing N",
		"Executed 2/2 commands, 0 pole crossings",
		"position: 0 0.05425243107004976\ndirection: N",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestSimulate_Obstacle(t *testing.T) {
	var out bytes.Buffer
	err := simulate(context.Background(), &out, options{
		X:         -10659954.353273375,
		Y:         10659954,
		Direction: "E",
		Commands:  "ff",
	})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Stopped on command 1: obstacle detected moving forward") {
		t.Errorf("Expected stop reason, got:\n%s", text)
	}
	if !strings.Contains(text, "Executed 0/2 commands") {
		t.Errorf("Expected nothing executed, got:\n%s", text)
	}
}

func TestSimulate_InvalidDirection(t *testing.T) {
	var out bytes.Buffer
	if err := simulate(context.Background(), &out, options{Direction: "north", Commands: "f"}); err == nil {
		t.Error("Expected error for invalid direction")
	}
}

func TestSimulate_JSON(t *testing.T) {
	var out bytes.Buffer
	err := simulate(context.Background(), &out, options{Direction: "S", Commands: "rx", JSON: true})
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	var result service.BatchResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("Expected JSON output: %v\n%s", err, out.String())
	}
	if result.Success || result.StopReasonCode != service.StopUnrecognizedCommand {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.CommandsExecuted != 1 || result.EndDirection.String() != "W" {
		t.Errorf("Expected one turn applied, got %+v", result)
	}
}

func TestPrintScan(t *testing.T) {
	var out bytes.Buffer
	printScan(&out, mercator.Coordinate{X: -3.5, Y: 7.25}, 1)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d lines:\n%s", len(lines), out.String())
	}

	expected := []string{"###", "#R#", "##."}
	for i, row := range expected {
		if lines[i+1] != row {
			t.Errorf("Row %d: expected %q, got %q", i, row, lines[i+1])
		}
	}
}

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		expectErr bool
		contains  string
	}{
		{"turns", []string{"simulate", "--direction=E", "rr"}, false, "direction: W"},
		{"scan", []string{"simulate", "--x=-3.5", "--y=7.25", "--scan=1", "l"}, false, "#R#"},
		{"missing commands", []string{"simulate"}, true, ""},
		{"extra arguments", []string{"simulate", "f", "b"}, true, ""},
		{"bad direction", []string{"simulate", "--direction=Q", "f"}, true, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			err := newCommand(&out).Run(context.Background(), test.args)

			if test.expectErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), test.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", test.contains, out.String())
			}
		})
	}
}
