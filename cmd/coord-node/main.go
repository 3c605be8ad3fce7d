package main

import (
    "context"
    "flag"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "syscall"
    "time"

    "github.com/fedmask/chaincoord/internal/api"
    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/hub"
    "github.com/fedmask/chaincoord/internal/ledger"
    "github.com/fedmask/chaincoord/internal/monitoring"
    "github.com/fedmask/chaincoord/internal/secretshare"
    "github.com/fedmask/chaincoord/internal/verify"
    "github.com/fedmask/chaincoord/pkg/lifecycle"
    "github.com/fedmask/chaincoord/pkg/logger"
)

func main() {
    var (
        apiAddr     string
        monAddr     string
        nodeAddr    string
        verifiers   string
        endpoint    string
        keystore    string
        journalPath string
        webhookURL  string
        confirmSec  int
    )
    flag.StringVar(&apiAddr, "api", "127.0.0.1:4700", "API listen address")
    flag.StringVar(&monAddr, "monitoring", "127.0.0.1:4720", "Monitoring listen address")
    flag.StringVar(&nodeAddr, "node.address", "", "Authorized node address for mutating operations")
    flag.StringVar(&verifiers, "verifiers", "", "Verifier mapping as size:name,... (e.g. 1024:verifier-1k)")
    flag.StringVar(&endpoint, "ledger.endpoint", "", "Ledger websocket endpoint; empty runs the in-memory ledger")
    flag.StringVar(&keystore, "ledger.keystore", "ledger_key.dat", "Path to the signing keystore")
    flag.StringVar(&journalPath, "journal", "", "Optional path to the mutation intent journal")
    flag.StringVar(&webhookURL, "webhook.url", "", "Optional round lifecycle webhook endpoint")
    flag.IntVar(&confirmSec, "ledger.confirm-timeout", 30, "Confirmation timeout in seconds")
    flag.Parse()

    ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer cancel()

    var led ledger.Client
    if endpoint == "" {
        led = ledger.NewMemory()
        logger.Info("ledger: in-memory backend")
    } else {
        ks := ledger.NewKeyStoreFromEnv(keystore)
        sk, err := ks.Load(ctx)
        if err != nil {
            logger.Error("keystore: " + err.Error())
            os.Exit(1)
        }
        if nodeAddr == "" {
            nodeAddr = sk.Address
        }
        conn, err := ledger.Dial(ctx, ledger.Config{
            Endpoint:       endpoint,
            Key:            sk.Key,
            Chain:          chainParamsFromEnv(),
            ConfirmTimeout: time.Duration(confirmSec) * time.Second,
        })
        if err != nil {
            logger.Error("ledger: " + err.Error())
            os.Exit(1)
        }
        defer conn.Close()
        led = conn
    }

    coord := coordinator.New(nodeAddr, led)
    if journalPath != "" {
        j := coordinator.NewJournal(journalPath)
        if last, err := j.LastIntent(); err == nil {
            logger.InfoJ("coord_journal", map[string]any{"op": "recover", "result": "ok", "call": last.Op, "task": last.TaskID, "round": last.Round})
        }
        coord.SetJournal(j)
    }

    h := hub.New(led)
    hubSvc := hub.NewService(h)
    if webhookURL != "" {
        hubSvc.SetSink(hub.WebhookSink{URL: webhookURL})
    }

    orch := secretshare.New(nodeAddr, coord, secretshare.Config{})
    gate := verify.New(nodeAddr, led, coord, parseVerifiers(verifiers), verify.HexExporter{})

    apiSvc := api.New(apiAddr, coord)
    apiSvc.SetHub(h)
    apiSvc.SetOrchestrator(orch)
    apiSvc.SetGate(gate)

    m := lifecycle.New()
    m.Add(monitoring.New(monAddr))
    m.Add(hubSvc)
    m.Add(apiSvc)

    if err := m.StartAll(ctx); err != nil {
        logger.Error(err.Error())
        os.Exit(1)
    }
    <-ctx.Done()
    _ = m.StopAll(context.Background())
    logger.Sync()
}

// parseVerifiers parses "1024:verifier-1k,4096:verifier-4k".
func parseVerifiers(s string) map[int]string {
    out := make(map[int]string)
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        kv := strings.SplitN(part, ":", 2)
        if len(kv) != 2 {
            continue
        }
        size, err := strconv.Atoi(strings.TrimSpace(kv[0]))
        if err != nil {
            continue
        }
        out[size] = strings.TrimSpace(kv[1])
    }
    return out
}

// chainParamsFromEnv collects CHAINCOORD_CHAIN_* variables into the opaque
// parameter map handed to the ledger connection.
func chainParamsFromEnv() map[string]any {
    params := make(map[string]any)
    for _, kv := range os.Environ() {
        const prefix = "CHAINCOORD_CHAIN_"
        if !strings.HasPrefix(kv, prefix) {
            continue
        }
        rest := strings.TrimPrefix(kv, prefix)
        eq := strings.IndexByte(rest, '=')
        if eq <= 0 {
            continue
        }
        params[strings.ToLower(rest[:eq])] = rest[eq+1:]
    }
    return params
}
