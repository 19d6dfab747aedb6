package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"patient-payments/internal/adapter/storage/memory"
	"patient-payments/internal/core/domain"
	"patient-payments/internal/service"
	"patient-payments/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := `
storage:
  driver: "memory"
audit:
  driver: "sqlite"
  sqlite_path: "` + filepath.Join(dir, "audit.db") + `"
crypto:
  secret: "cli-test-secret"
jwt:
  secret: "cli-jwt-secret"
ratelimit:
  enabled: false
log:
  level: "error"
` + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestEnvelope_RoundTrip(t *testing.T) {
	path := writeConfig(t, "")

	env, _, err := run(t, "", "--config", path, "envelope", "encrypt", "4111111111111111")
	require.NoError(t, err)
	env = strings.TrimSpace(env)
	assert.NotContains(t, env, "4111111111111111")

	plain, _, err := run(t, env+"\n", "--config", path, "envelope", "decrypt")
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111\n", plain)
}

func TestEnvelope_DecryptTampered(t *testing.T) {
	path := writeConfig(t, "")

	_, _, err := run(t, "", "--config", path, "envelope", "decrypt", "bm90LWFuLWVudmVsb3Bl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRY_002")
}

func TestEnvelope_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "")
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes.Replace(body, []byte("cli-test-secret"), nil, 1), 0o600))

	_, _, err = run(t, "", "--config", path, "envelope", "encrypt", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crypto.secret")
}

func TestTokenIssue(t *testing.T) {
	path := writeConfig(t, "")

	out, stderr, err := run(t, "", "--config", path, "token", "issue", "--subject", "patient-7")
	require.NoError(t, err)
	assert.Contains(t, stderr, "expires")

	claims, err := service.NewJWTTokenService("cli-jwt-secret", time.Hour, "patient-portal").Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "patient-7", claims.Subject)
}

func TestTokenIssue_SubjectRequired(t *testing.T) {
	path := writeConfig(t, "")

	_, _, err := run(t, "", "--config", path, "token", "issue")
	require.Error(t, err)
}

func TestAuditMigrate_SQLite(t *testing.T) {
	path := writeConfig(t, "")

	out, _, err := run(t, "", "--config", path, "audit", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied migrations [1]")
}

func TestAuditQuery_SQLite(t *testing.T) {
	path := writeConfig(t, "")

	// Seed through the same store the command opens.
	_, _, err := run(t, "", "--config", path, "audit", "migrate")
	require.NoError(t, err)

	ctx := context.Background()
	store, closeStore, err := openAuditStore(ctx)
	require.NoError(t, err)
	for i, action := range []domain.AuditAction{
		domain.AuditActionAddPaymentMethod,
		domain.AuditActionProcessPayment,
		domain.AuditActionProcessPayment,
	} {
		_, err := store.Append(ctx, domain.AuditEntry{
			Timestamp: time.Now(),
			Action:    action,
			ActorID:   "patient-1",
			Details:   map[string]any{"transactionId": []string{"t0", "t1", "t2"}[i]},
		})
		require.NoError(t, err)
	}
	closeStore()

	out, _, err := run(t, "", "--config", path, "audit", "query", "--action", "PROCESS_PAYMENT")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first domain.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, domain.AuditActionProcessPayment, first.Action)
	assert.Equal(t, "t1", first.Details["transactionId"])

	out, _, err = run(t, "", "--config", path, "audit", "query", "--transaction-id", "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	out, _, err = run(t, "", "--config", path, "audit", "query", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestAuditQueryFlags_ToFilter(t *testing.T) {
	f, err := auditQueryFlags{
		action:        "PROCESS_PAYMENT",
		transactionID: "t1",
		from:          "2024-01-01T00:00:00Z",
	}.toFilter()
	require.NoError(t, err)
	assert.Equal(t, domain.AuditActionProcessPayment, f.Action)
	assert.Equal(t, map[string]string{"transactionId": "t1"}, f.Details)
	require.NotNil(t, f.DateRange)
	assert.True(t, f.DateRange.End.IsZero())

	_, err = auditQueryFlags{action: "DELETE"}.toFilter()
	assert.ErrorContains(t, err, "unknown action")

	_, err = auditQueryFlags{from: "yesterday"}.toFilter()
	assert.ErrorContains(t, err, "--from")

	_, err = auditQueryFlags{from: "2024-02-01T00:00:00Z", to: "2024-01-01T00:00:00Z"}.toFilter()
	assert.Error(t, err)

	_, err = auditQueryFlags{limit: -1}.toFilter()
	assert.Error(t, err)
}

func TestWriteAuditEntries_StopsAtLimit(t *testing.T) {
	store := memory.NewAuditStore()
	ctx := context.Background()
	for range 5 {
		_, err := store.Append(ctx, domain.AuditEntry{Timestamp: time.Now(), Action: domain.AuditActionProcessPayment})
		require.NoError(t, err)
	}
	trail := service.NewAuditTrail(store, 2, logger.NewWithWriter("error", &bytes.Buffer{}))

	var buf bytes.Buffer
	require.NoError(t, writeAuditEntries(ctx, &buf, trail, domain.AuditFilter{}, 3))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestOpenStores_MemoryAndSQLite(t *testing.T) {
	path := writeConfig(t, "")
	_, _, err := run(t, "", "--config", path, "audit", "migrate")
	require.NoError(t, err)

	st, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer st.Close()

	assert.NotNil(t, st.methods)
	assert.NotNil(t, st.txns)
	assert.NotNil(t, st.billing)
	assert.NotNil(t, st.audit)
	assert.Nil(t, st.rateLimit)
	require.Len(t, st.health, 1)
	assert.Equal(t, "audit-sqlite", st.health[0].Name())
}

func TestOpenStores_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	path := writeConfig(t, "")
	_, _, err := run(t, "", "--config", path, "audit", "migrate")
	require.NoError(t, err)

	cfg.RateLimit.Enabled = true
	cfg.Audit.Driver = "memory"
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mustPort(t, mr.Port())

	st, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer st.Close()

	require.NotNil(t, st.rateLimit)
	res, err := st.rateLimit.Allow(context.Background(), "actor:p1:payments", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Remaining)
	assert.NotEmpty(t, mr.Keys())
}

func TestOpenStores_RedisDownFallsBackToMemory(t *testing.T) {
	path := writeConfig(t, "")
	_, _, err := run(t, "", "--config", path, "audit", "migrate")
	require.NoError(t, err)

	cfg.RateLimit.Enabled = true
	cfg.Audit.Driver = "memory"
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1

	st, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.rateLimit.(*memory.RateLimitStore)
	assert.True(t, ok)
}

func TestStores_CloseReverseOrder(t *testing.T) {
	var order []int
	st := &stores{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}
	st.Close()
	st.Close()
	assert.Equal(t, []int{2, 1}, order)
}

func mustPort(t *testing.T, s string) int {
	t.Helper()
	p, err := strconv.Atoi(s)
	require.NoError(t, err)
	return p
}
