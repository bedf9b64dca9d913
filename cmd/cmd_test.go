package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "DB_DRIVER=memory\n" +
		"PORT=0\n" +
		"LOG_PATH=" + filepath.Join(dir, "logs") + "\n" +
		"PAYMENT_BASE_URL=http://provider.invalid\n" +
		"PAYMENT_WEBHOOK_SECRET=whsec\n" +
		"SWEEP_INTERVAL=50ms\n" +
		"POLL_INTERVAL=50ms\n" +
		extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBootstrap_MemoryLedger(t *testing.T) {
	rt, err := bootstrap(writeEnv(t, ""))
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.db)
	assert.Nil(t, rt.rdb)
	require.NotNil(t, rt.repo)
	require.NotNil(t, rt.service)
	assert.NoError(t, rt.ping(context.Background()))
}

func TestBootstrap_RedisSinks(t *testing.T) {
	mr := miniredis.RunT(t)
	rt, err := bootstrap(writeEnv(t, "REDIS_ADDR="+mr.Addr()+"\n"))
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.rdb)
	assert.NoError(t, rt.ping(context.Background()))

	mr.Close()
	assert.Error(t, rt.ping(context.Background()))
}

func TestBootstrap_RejectsUnknownDrivers(t *testing.T) {
	_, err := bootstrap(writeEnv(t, "EVENTS_DRIVER=carrier-pigeon\n"))
	assert.ErrorContains(t, err, "EVENTS_DRIVER")

	_, err = bootstrap(writeEnv(t, "EVENTS_DRIVER=kafka\n"))
	assert.ErrorContains(t, err, "KAFKA_BROKERS")
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	rt, err := bootstrap(writeEnv(t, ""))
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runServe(ctx, rt, true) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestSweepCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--env", writeEnv(t, ""), "sweep", "--retention", "24h"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "swept 0 scrims")
}

func TestMigrateCommand_NeedsPostgres(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--env", writeEnv(t, ""), "migrate"})

	assert.ErrorContains(t, root.Execute(), "DB_DRIVER=postgres")
}
