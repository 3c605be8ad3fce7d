package api

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/ledger"
)

const node = "0xN0DE"

func newTestService() (*Service, *ledger.Memory) {
    led := ledger.NewMemory()
    return New(":0", coordinator.New(node, led)), led
}

func TestHandleTask_Create_OK(t *testing.T) {
    t.Setenv("CHAINCOORD_ENABLE_API", "1")
    s, led := newTestService()
    led.SetReceiptLogs("createTask", ledger.Log{Name: "TaskCreated", Values: map[string]any{"taskId": "T1"}})

    body, _ := json.Marshal(createTaskReq{Address: node, Dataset: "ds1", Commitment: "c1", TaskType: "hlr", EnableVerify: true, Tolerance: 5})
    req := httptest.NewRequest(http.MethodPost, "/v1/task", bytes.NewReader(body))
    rr := httptest.NewRecorder()
    s.handleTask(rr, req)

    if rr.Code != http.StatusAccepted {
        t.Fatalf("expected 202, got %d", rr.Code)
    }
    var resp map[string]any
    _ = json.Unmarshal(rr.Body.Bytes(), &resp)
    if resp["task_id"] != "T1" || resp["tx"] == "" {
        t.Fatalf("resp %+v", resp)
    }
}

func TestHandleTask_Create_Disabled(t *testing.T) {
    s, _ := newTestService()
    body, _ := json.Marshal(createTaskReq{Address: node})
    rr := httptest.NewRecorder()
    s.handleTask(rr, httptest.NewRequest(http.MethodPost, "/v1/task", bytes.NewReader(body)))
    if rr.Code != http.StatusForbidden {
        t.Fatalf("expected 403, got %d", rr.Code)
    }
}

func TestHandleTask_Create_Unauthorized(t *testing.T) {
    t.Setenv("CHAINCOORD_ENABLE_API", "1")
    s, led := newTestService()
    body, _ := json.Marshal(createTaskReq{Address: "0xEVE", Dataset: "ds1"})
    rr := httptest.NewRecorder()
    s.handleTask(rr, httptest.NewRequest(http.MethodPost, "/v1/task", bytes.NewReader(body)))
    if rr.Code != http.StatusForbidden {
        t.Fatalf("expected 403, got %d", rr.Code)
    }
    if len(led.Calls()) != 0 {
        t.Fatalf("unauthorized create reached the ledger")
    }
}

func TestHandleTask_Create_InvalidJSON(t *testing.T) {
    t.Setenv("CHAINCOORD_ENABLE_API", "1")
    s, _ := newTestService()
    rr := httptest.NewRecorder()
    s.handleTask(rr, httptest.NewRequest(http.MethodPost, "/v1/task", bytes.NewBufferString("{")))
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
}

func TestHandleTask_Get_MapsTask(t *testing.T) {
    s, led := newTestService()
    led.SetResult("getTask", map[string]any{
        "address": node, "taskId": "T1", "dataset": "ds1", "commitment": "c1",
        "taskType": "hlr", "finished": false, "enableVerify": true, "tolerance": 5,
    })
    rr := httptest.NewRecorder()
    s.handleTask(rr, httptest.NewRequest(http.MethodGet, "/v1/task?id=T1", nil))
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    var ti coordinator.TaskInfo
    _ = json.Unmarshal(rr.Body.Bytes(), &ti)
    if ti.TaskID != "T1" || ti.Dataset != "ds1" || !ti.EnableVerify {
        t.Fatalf("got %+v", ti)
    }
}

func TestHandleStartRound_MethodNotAllowed(t *testing.T) {
    s, _ := newTestService()
    rr := httptest.NewRecorder()
    s.handleStartRound(rr, httptest.NewRequest(http.MethodGet, "/v1/round/start", nil))
    if rr.Code != http.StatusMethodNotAllowed {
        t.Fatalf("expected 405, got %d", rr.Code)
    }
}

func TestHandleRound_Get(t *testing.T) {
    s, led := newTestService()
    led.SetResult("getTaskRound", map[string]any{
        "taskId": "T1", "round": 2, "status": 1,
        "joinedClients": []any{"0xA"}, "finishedClients": []any{},
    })
    rr := httptest.NewRecorder()
    s.handleRound(rr, httptest.NewRequest(http.MethodGet, "/v1/round?task=T1&round=2", nil))
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    var tr coordinator.TaskRound
    _ = json.Unmarshal(rr.Body.Bytes(), &tr)
    if tr.Round != 2 || tr.Status != coordinator.RoundRunning {
        t.Fatalf("got %+v", tr)
    }
}
