package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	res := make([]map[string]any, 0, 16)
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m), string(line))
		res = append(res, m)
	}
	return res
}

func TestNewApp_FxEvents(t *testing.T) {
	logOut := &bytes.Buffer{}
	opts := appOpts{
		name:     "demo",
		logLevel: "debug",
		logJSON:  true,
		metrics:  "none",
		logOut:   logOut,
	}
	app := &cliApp{}
	fxApp := newApp(opts, &bytes.Buffer{}, app)
	require.NoError(t, fxApp.Err())
	require.NoError(t, fxApp.Start(context.Background()))
	require.NotNil(t, app.logger)
	require.NoError(t, fxApp.Stop(context.Background()))

	msgs := make(map[string]struct{})
	for _, line := range logLines(t, logOut) {
		if line["component"] != "fx" {
			continue
		}
		require.NotEqual(t, "ERROR", line["lvl"], line)
		_, hasCaller := line["callAt"]
		require.False(t, hasCaller)
		msgs[line["msg"].(string)] = struct{}{}
	}
	for _, msg := range []string{
		"supplied",
		"provided",
		"logger initialized",
		"invoked",
		"OnStart hook executing",
		"OnStart hook executed",
		"started",
		"OnStop hook executing",
		"OnStop hook executed",
		"stopped",
	} {
		require.Contains(t, msgs, msg)
	}
}

func TestNewApp_ProvideFailed(t *testing.T) {
	logOut := &bytes.Buffer{}
	opts := appOpts{
		name:     "demo",
		logLevel: "info",
		logJSON:  true,
		metrics:  "otlp",
		logOut:   logOut,
	}
	fxApp := newApp(opts, &bytes.Buffer{}, &cliApp{})
	require.Error(t, fxApp.Err())

	failed := false
	for _, line := range logLines(t, logOut) {
		if line["component"] == "fx" && line["lvl"] == "ERROR" {
			failed = true
		}
	}
	require.True(t, failed)
}

func TestRun_VerifyLogsCmdField(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run([]string{
		"verify", "-logjson",
		"-trials", "2", "-keys", "16", "-workers", "2", "-seed", "3",
	}, stdout, stderr)
	require.Equal(t, exitOK, code, stderr.String())

	found := false
	for _, line := range logLines(t, stderr) {
		if line["msg"] == "verify finished" {
			found = true
			require.Equal(t, "verify", line["cmd"])
			require.Equal(t, float64(0), line["failed"])
		}
	}
	require.True(t, found)
}
