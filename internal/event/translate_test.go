package event

import (
    "testing"

    "github.com/fedmask/chaincoord/internal/ledger"
)

func TestTranslate_RoundEvents_CoerceNumericStrings(t *testing.T) {
    ev, ok := Translate(ledger.RawEvent{Name: "RoundStart", Values: map[string]any{"taskId": "T1", "round": "3"}})
    if !ok { t.Fatalf("RoundStart should translate") }
    rs, ok := ev.(RoundStarted)
    if !ok { t.Fatalf("want RoundStarted, got %T", ev) }
    if rs.TaskID != "T1" || rs.Round != 3 { t.Fatalf("got %+v", rs) }

    ev, ok = Translate(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": "T1", "round": float64(3)}})
    if !ok { t.Fatalf("RoundEnd should translate") }
    re := ev.(RoundEnded)
    if re.TaskID != "T1" || re.Round != 3 { t.Fatalf("got %+v", re) }
}

func TestTranslate_PhaseEvents_CarryAddrs(t *testing.T) {
    for name, want := range map[string]string{
        "PartnerSelected":  "PartnerSelected",
        "CalculateStarted": "CalculationStarted",
        "AggregateStarted": "AggregationStarted",
    } {
        ev, ok := Translate(ledger.RawEvent{Name: name, Values: map[string]any{
            "taskId": "T1", "round": "2", "addrs": []any{"0xA", "0xB"},
        }})
        if !ok { t.Fatalf("%s should translate", name) }
        if ev.Name() != want { t.Fatalf("%s: want domain name %s, got %s", name, want, ev.Name()) }
        scope := ev.Scope()
        if len(scope) != 2 || scope[0] != "0xA" || scope[1] != "0xB" { t.Fatalf("%s: scope %v", name, scope) }
    }
}

func TestTranslate_TaskCreated_CoercesFlagsAndTolerance(t *testing.T) {
    ev, ok := Translate(ledger.RawEvent{Name: "TaskCreated", Values: map[string]any{
        "taskId": "T1", "address": "0xC", "dataset": "ds1", "url": "http://d",
        "commitment": "c1", "taskType": "hlr", "enableVerify": 1, "tolerance": "5",
    }})
    if !ok { t.Fatalf("TaskCreated should translate") }
    tc := ev.(TaskCreated)
    if tc.Name() != "HLRTaskCreated" { t.Fatalf("domain name %s", tc.Name()) }
    if !tc.EnableVerify { t.Fatalf("flag 1 should coerce to true") }
    if tc.Tolerance != 5 { t.Fatalf("tolerance %d", tc.Tolerance) }
    if tc.Address != "0xC" || tc.Dataset != "ds1" || tc.Commitment != "c1" || tc.TaskType != "hlr" {
        t.Fatalf("got %+v", tc)
    }
}

func TestTranslate_MemberVerified_FlagVariants(t *testing.T) {
    for _, raw := range []any{true, 1, "1", "true", float64(1)} {
        ev, ok := Translate(ledger.RawEvent{Name: "TaskMemberVerified", Values: map[string]any{
            "taskId": "T1", "address": "0xA", "verified": raw,
        }})
        if !ok { t.Fatalf("should translate") }
        if !ev.(TaskMemberVerified).Verified { t.Fatalf("%v should coerce to true", raw) }
    }
    ev, _ := Translate(ledger.RawEvent{Name: "TaskMemberVerified", Values: map[string]any{
        "taskId": "T1", "address": "0xA", "verified": 0,
    }})
    if ev.(TaskMemberVerified).Verified { t.Fatalf("0 should coerce to false") }
}

func TestTranslate_UnrecognizedName_Dropped(t *testing.T) {
    for _, name := range []string{"", "BlockSealed", "taskcreated", "RoundStarted"} {
        if ev, ok := Translate(ledger.RawEvent{Name: name, Values: map[string]any{"taskId": "T1"}}); ok {
            t.Fatalf("raw %q should be dropped, got %T", name, ev)
        }
    }
}

func TestTranslate_TerminalTaskEvents(t *testing.T) {
    ev, ok := Translate(ledger.RawEvent{Name: "TaskFinished", Values: map[string]any{"taskId": "T9"}})
    if !ok || ev.(TaskFinished).TaskID != "T9" { t.Fatalf("got %v %v", ev, ok) }
    ev, ok = Translate(ledger.RawEvent{Name: "TaskVerificationConfirmed", Values: map[string]any{"taskId": "T9"}})
    if !ok || ev.(TaskVerificationConfirmed).TaskID != "T9" { t.Fatalf("got %v %v", ev, ok) }
}
