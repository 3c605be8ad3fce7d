package coordinator

import (
    "context"
    "fmt"
    "strconv"
)

// Query operations require no authorization: they issue one read-only ledger
// call and map the raw result into the typed entity. A result whose shape
// does not match (e.g. an error string where a record was expected) raises
// ErrMalformedResult.

// GetTask returns the typed view of taskID.
func (c *Coordinator) GetTask(ctx context.Context, taskID string) (TaskInfo, error) {
    raw, err := c.led.Query(ctx, "getTask", taskID)
    if err != nil {
        return TaskInfo{}, err
    }
    m, ok := raw.(map[string]any)
    if !ok {
        return TaskInfo{}, fmt.Errorf("%w: getTask: got %T", ErrMalformedResult, raw)
    }
    return TaskInfo{
        Address:      asString(m["address"]),
        TaskID:       asString(m["taskId"]),
        Dataset:      asString(m["dataset"]),
        URL:          asString(m["url"]),
        Commitment:   asString(m["commitment"]),
        TaskType:     asString(m["taskType"]),
        Finished:     asBool(m["finished"]),
        EnableVerify: asBool(m["enableVerify"]),
        Tolerance:    asInt(m["tolerance"]),
    }, nil
}

// GetWeightCommitment returns the weight commitment fixed by startRound.
func (c *Coordinator) GetWeightCommitment(ctx context.Context, taskID string, round int) (string, error) {
    raw, err := c.led.Query(ctx, "getWeightCommitment", taskID, round)
    if err != nil {
        return "", err
    }
    s, ok := raw.(string)
    if !ok {
        return "", fmt.Errorf("%w: getWeightCommitment: got %T", ErrMalformedResult, raw)
    }
    return s, nil
}

// GetTaskRound returns the typed round state.
func (c *Coordinator) GetTaskRound(ctx context.Context, taskID string, round int) (TaskRound, error) {
    raw, err := c.led.Query(ctx, "getTaskRound", taskID, round)
    if err != nil {
        return TaskRound{}, err
    }
    m, ok := raw.(map[string]any)
    if !ok {
        return TaskRound{}, fmt.Errorf("%w: getTaskRound: got %T", ErrMalformedResult, raw)
    }
    return TaskRound{
        TaskID:          asString(m["taskId"]),
        Round:           asInt(m["round"]),
        Status:          RoundStatus(asInt(m["status"])),
        JoinedClients:   asStrings(m["joinedClients"]),
        FinishedClients: asStrings(m["finishedClients"]),
    }, nil
}

// GetClientPublicKeys returns the key pair a client registered via joinRound.
func (c *Coordinator) GetClientPublicKeys(ctx context.Context, taskID string, round int, client string) (PublicKeys, error) {
    raw, err := c.led.Query(ctx, "getClientPublicKeys", taskID, round, client)
    if err != nil {
        return PublicKeys{}, err
    }
    m, ok := raw.(map[string]any)
    if !ok {
        return PublicKeys{}, fmt.Errorf("%w: getClientPublicKeys: got %T", ErrMalformedResult, raw)
    }
    return PublicKeys{PK1: asString(m["pk1"]), PK2: asString(m["pk2"])}, nil
}

// GetResultCommitment returns one client's uploaded result commitment.
func (c *Coordinator) GetResultCommitment(ctx context.Context, taskID string, round int, client string) (string, error) {
    raw, err := c.led.Query(ctx, "getResultCommitment", taskID, round, client)
    if err != nil {
        return "", err
    }
    s, ok := raw.(string)
    if !ok {
        return "", fmt.Errorf("%w: getResultCommitment: got %T", ErrMalformedResult, raw)
    }
    return s, nil
}

// GetSecretShareDatas returns, for each sender in order, the share bundle
// addressed to receiver: revealed seed/secret-key pieces plus the
// commitments published before the reveal.
func (c *Coordinator) GetSecretShareDatas(ctx context.Context, taskID string, round int, senders []string, receiver string) ([]SecretShareData, error) {
    raw, err := c.led.Query(ctx, "getSecretShareDatas", taskID, round, senders, receiver)
    if err != nil {
        return nil, err
    }
    list, ok := raw.([]any)
    if !ok {
        return nil, fmt.Errorf("%w: getSecretShareDatas: got %T", ErrMalformedResult, raw)
    }
    out := make([]SecretShareData, 0, len(list))
    for _, it := range list {
        m, ok := it.(map[string]any)
        if !ok {
            return nil, fmt.Errorf("%w: getSecretShareDatas: item %T", ErrMalformedResult, it)
        }
        out = append(out, SecretShareData{
            Seed:                asString(m["seed"]),
            SeedCommitment:      asString(m["seedCommitment"]),
            SecretKey:           asString(m["secretKey"]),
            SecretKeyCommitment: asString(m["secretKeyCommitment"]),
        })
    }
    return out, nil
}

// GetVerifierState returns the per-task verification aggregate.
func (c *Coordinator) GetVerifierState(ctx context.Context, taskID string) (VerifierState, error) {
    raw, err := c.led.Query(ctx, "getVerifierState", taskID)
    if err != nil {
        return VerifierState{}, err
    }
    m, ok := raw.(map[string]any)
    if !ok {
        return VerifierState{}, fmt.Errorf("%w: getVerifierState: got %T", ErrMalformedResult, raw)
    }
    return VerifierState{
        UnfinishedClients: asStrings(m["unfinishedClients"]),
        InvalidClients:    asStrings(m["invalidClients"]),
        Valid:             asBool(m["valid"]),
        Confirmed:         asBool(m["confirmed"]),
    }, nil
}

// Raw ledger values arrive JSON-shaped: numbers as float64 or numeric
// strings, flags as bools or 0/1.

func asString(v any) string {
    s, _ := v.(string)
    return s
}

func asInt(v any) int {
    switch x := v.(type) {
    case int:
        return x
    case int64:
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

func asBool(v any) bool {
    switch x := v.(type) {
    case bool:
        return x
    case int:
        return x != 0
    case float64:
        return x != 0
    case string:
        return x == "1" || x == "true"
    }
    return false
}

func asStrings(v any) []string {
    switch x := v.(type) {
    case []string:
        return x
    case []any:
        out := make([]string, 0, len(x))
        for _, e := range x {
            out = append(out, asString(e))
        }
        return out
    }
    return nil
}
