package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"teamfinance/internal/log"
)

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf, Component: "test"})
	clogger := cronLogger{logger}
	clogger.Info("foo")
	clogger.Error(fmt.Errorf("bar"), "test")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG msg=foo") {
		t.Errorf("missing debug line: %s", out)
	}
	if !strings.Contains(out, "level=ERROR msg=test") || !strings.Contains(out, "error=bar") {
		t.Errorf("missing error line: %s", out)
	}
}

func TestSchedulerAddRemove(t *testing.T) {
	s := New(nil)
	id, err := s.AddJob(context.TODO(), "@every 1m", func(context.Context) {})
	if err != nil {
		t.Fatal(err)
	}
	s.Remove(id)
	if len(s.Entries()) != 0 {
		t.Fatalf("expected no entries, got %d", len(s.Entries()))
	}
}

func TestValidate(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "@every 10m", "@hourly"} {
		if err := Validate(spec); err != nil {
			t.Errorf("%q: %v", spec, err)
		}
	}
	if err := Validate("every now and then"); err == nil {
		t.Error("expected error for invalid spec")
	}
}
