package event

import (
    "strconv"

    "github.com/fedmask/chaincoord/internal/ledger"
)

// Translate maps one raw ledger event to its typed domain event. Pure and
// total over the recognized set; unrecognized names return (nil, false) so
// newer ledger programs can add events without breaking older subscribers.
func Translate(raw ledger.RawEvent) (Event, bool) {
    v := raw.Values
    switch raw.Name {
    case "RoundStart":
        return RoundStarted{TaskID: str(v["taskId"]), Round: num(v["round"])}, true
    case "RoundEnd":
        return RoundEnded{TaskID: str(v["taskId"]), Round: num(v["round"])}, true
    case "PartnerSelected":
        return PartnerSelected{TaskID: str(v["taskId"]), Round: num(v["round"]), Addrs: strs(v["addrs"])}, true
    case "CalculateStarted":
        return CalculationStarted{TaskID: str(v["taskId"]), Round: num(v["round"]), Addrs: strs(v["addrs"])}, true
    case "AggregateStarted":
        return AggregationStarted{TaskID: str(v["taskId"]), Round: num(v["round"]), Addrs: strs(v["addrs"])}, true
    case "TaskCreated":
        return TaskCreated{
            TaskID:       str(v["taskId"]),
            Address:      str(v["address"]),
            Dataset:      str(v["dataset"]),
            URL:          str(v["url"]),
            Commitment:   str(v["commitment"]),
            TaskType:     str(v["taskType"]),
            EnableVerify: flag(v["enableVerify"]),
            Tolerance:    num(v["tolerance"]),
        }, true
    case "TaskFinished":
        return TaskFinished{TaskID: str(v["taskId"])}, true
    case "TaskMemberVerified":
        return TaskMemberVerified{TaskID: str(v["taskId"]), Address: str(v["address"]), Verified: flag(v["verified"])}, true
    case "TaskVerificationConfirmed":
        return TaskVerificationConfirmed{TaskID: str(v["taskId"])}, true
    }
    return nil, false
}

// str coerces a raw value to string.
func str(v any) string {
    switch x := v.(type) {
    case string:
        return x
    case nil:
        return ""
    default:
        return ""
    }
}

// num coerces a raw value to int: numeric strings ("3"), json numbers, ints.
func num(v any) int {
    switch x := v.(type) {
    case int:
        return x
    case int64:
        return int(x)
    case uint64:
        return int(x)
    case float64:
        return int(x)
    case string:
        n, err := strconv.Atoi(x)
        if err != nil {
            return 0
        }
        return n
    }
    return 0
}

// flag coerces a raw value to bool: true, 1, "1", "true".
func flag(v any) bool {
    switch x := v.(type) {
    case bool:
        return x
    case int:
        return x != 0
    case int64:
        return x != 0
    case float64:
        return x != 0
    case string:
        return x == "1" || x == "true"
    }
    return false
}

// strs coerces a raw value to a string slice.
func strs(v any) []string {
    switch x := v.(type) {
    case []string:
        return x
    case []any:
        out := make([]string, 0, len(x))
        for _, e := range x {
            out = append(out, str(e))
        }
        return out
    }
    return nil
}
