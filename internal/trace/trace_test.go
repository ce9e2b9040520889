package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRingKeepsNewestInOrder(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: name})
	}
	got := r.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Name != want {
			t.Errorf("event %d = %q, want %q", i, got[i].Name, want)
		}
	}
}

func TestStreamFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatText)
	span := Begin(st, ScopePass, "triangulate", 0)
	Begin(st, ScopeObject, "object:lid", span.ID()).End("")
	span.WithExtra("objects", "2").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ triangulate") || !strings.Contains(out, "← triangulate (ok) {objects=2}") {
		t.Errorf("missing pass span in %q", out)
	}
	if strings.Contains(out, "object:lid") {
		t.Errorf("object span must be filtered at phase level: %q", out)
	}
}

func TestStartNestsSpansThroughContext(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	ctx, outer := Start(ctx, ScopeDriver, "build")
	_, inner := Start(ctx, ScopePass, "load")
	inner.End("")
	outer.End("")

	events := r.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Errorf("inner parent = %d, want %d", events[1].ParentID, outer.ID())
	}
}

func TestObjectTagsSpansUnderIt(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	ctx, compile := Start(WithTracer(context.Background(), r), ScopeDriver, "compile")
	objCtx := WithObject(ctx, "lid")
	_, tri := Start(objCtx, ScopeObject, "triangulate")
	tri.End("")
	compile.End("")

	if got := ObjectFromContext(objCtx); got != "lid" {
		t.Errorf("object = %q", got)
	}
	if ObjectFromContext(ctx) != "" {
		t.Error("the object leaked into the parent context")
	}
	if FromContext(objCtx) != Tracer(r) || CurrentSpan(objCtx).SpanID != compile.ID() {
		t.Error("WithObject dropped the tracer or span")
	}

	events := r.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if end := events[2]; end.Name != "triangulate" || end.Extra["object"] != "lid" || end.ParentID != compile.ID() {
		t.Errorf("triangulate end = %+v", end)
	}
	if events[3].Extra["object"] != "" {
		t.Errorf("compile span tagged with %q", events[3].Extra["object"])
	}
}

func TestEmptyContextIsNop(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Error("expected Nop tracer")
	}
	if (CurrentSpan(context.Background()) != SpanContext{}) {
		t.Error("expected zero span")
	}
}

func TestNDJSONIsOneLine(t *testing.T) {
	line := FormatEvent(&Event{Kind: KindPoint, Scope: ScopeNode, Name: "stmt", Detail: "line 3"}, FormatNDJSON)
	if bytes.Count(line, []byte("\n")) != 1 || !bytes.Contains(line, []byte(`"scope":"node"`)) {
		t.Errorf("unexpected ndjson %q", line)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("expected disabled tracer, got %v %v", tr, err)
	}
	if _, err := ParseLevel("DETAIL"); err != nil {
		t.Error(err)
	}
	if _, err := ParseMode("nope"); err == nil {
		t.Error("expected mode error")
	}
}

func TestHeartbeatCarriesRuntimeStats(t *testing.T) {
	r := NewRingTracer(16, LevelError)
	h := StartHeartbeat(r, 5*time.Millisecond)
	if h == nil {
		t.Fatal("heartbeat not started")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.Stop()
	h.Stop()

	got := r.Snapshot()
	if len(got) < 2 {
		t.Fatalf("expected at least 2 beats, got %d", len(got))
	}
	first := got[0]
	if first.Kind != KindHeartbeat || first.Detail != "#1" {
		t.Errorf("first beat = %+v", first)
	}
	for _, key := range []string{"uptime", "goroutines", "heap_mb"} {
		if first.Extra[key] == "" {
			t.Errorf("beat lacks %s: %v", key, first.Extra)
		}
	}

	n := len(r.Snapshot())
	time.Sleep(20 * time.Millisecond)
	if len(r.Snapshot()) != n {
		t.Error("beats continued after Stop")
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Error("heartbeat started for a disabled tracer")
	}
	if StartHeartbeat(NewRingTracer(1, LevelPhase), 0) != nil {
		t.Error("heartbeat started without an interval")
	}
	var h *Heartbeat
	h.Stop()
}
