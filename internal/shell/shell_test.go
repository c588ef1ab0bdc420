package shell

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestShellStartProposeQuery(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, 18527, time.Second, time.Second, 3, true, true)

	input := strings.NewReader("start 3\npropose 1 5\nquery 1\nexit\n")
	s.Run(input)

	got := out.String()
	if !strings.Contains(got, "started 3 replicas") {
		t.Fatalf("expected a start confirmation, got: %q", got)
	}
}

func TestShellRejectsProposeBeforeStart(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, 18727, time.Second, time.Second, 3, true, true)

	input := strings.NewReader("propose 1 5\nexit\n")
	s.Run(input)

	got := out.String()
	if !strings.Contains(got, "no cluster started yet") {
		t.Fatalf("expected a no-cluster error, got: %q", got)
	}
}

func TestShellAutoStartsClusterWhenNotManual(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, 19027, time.Second, time.Second, 3, false, true)

	input := strings.NewReader("propose 1 5\nexit\n")
	s.Run(input)

	got := out.String()
	if !strings.Contains(got, "started 3 replicas") {
		t.Fatalf("expected auto-start confirmation before the prompt, got: %q", got)
	}
	if strings.Contains(got, "no cluster started yet") {
		t.Fatalf("propose should have found an auto-started cluster, got: %q", got)
	}
}

func TestShellUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, 18927, time.Second, time.Second, 3, true, true)

	input := strings.NewReader("frobnicate\nexit\n")
	s.Run(input)

	if out.String() == "" {
		t.Fatal("expected some error output for an unrecognized command")
	}
}
