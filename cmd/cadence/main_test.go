package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestEvalPrintsThroughConsole(t *testing.T) {
	code, out, errOut := runCLI(t, "-e", `Promise.resolve("later").then(console.log); console.log("now");`)
	assert.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "now\nlater\n", out)
}

func TestPrintFlagShowsCompletionValue(t *testing.T) {
	code, out, _ := runCLI(t, "-p", "-e", "({ a: [1, 2] })")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "{ a: [ 1, 2 ] }\n", out)
}

func TestRunFileWithArgs(t *testing.T) {
	path := writeScript(t, "args.js", "console.log(process.argv.slice(2).join(','));")
	code, out, _ := runCLI(t, path, "--name", "x")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "--name,x\n", out)
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		want       int
		wantStderr string
	}{
		{"no input", nil, ExitUsage, "expected a script file"},
		{"unknown flag", []string{"--bogus"}, ExitUsage, "unknown flag"},
		{"missing file", []string{"does-not-exist.js"}, ExitUsage, "does-not-exist.js"},
		{"syntax error", []string{"-e", "let x = ;"}, ExitDataErr, "Syntax Error at 1:9"},
		{"uncaught", []string{"-e", `throw new TypeError("bad")`}, ExitSoftware, "Uncaught TypeError: bad"},
		{"exit code from script", []string{"-e", "process.exitCode = 3"}, 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, errOut, tt.wantStderr)
		})
	}
}

func TestConfigFlag(t *testing.T) {
	cfgPath := writeScript(t, "cadence.yml", "unhandled_rejections: strict\n")
	code, _, errOut := runCLI(t, "--config", cfgPath, "-e", `Promise.reject(new Error("lost"))`)
	assert.Equal(t, ExitSoftware, code)
	assert.Contains(t, errOut, "Uncaught (in promise) Error: lost")

	bad := writeScript(t, "bad.yml", "unhandled_rejections: sometimes\n")
	code, _, errOut = runCLI(t, "--config", bad, "-e", "1")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "unhandled_rejections")
}

func TestTraceFlagLogsJobs(t *testing.T) {
	code, _, errOut := runCLI(t, "--trace", "-e", "Promise.resolve().then(() => {})")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, errOut, "queue=ScriptJobs")
	assert.Contains(t, errOut, "queue=PromiseJobs")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.js")
	bad := filepath.Join(dir, "bad.js")
	require.NoError(t, os.WriteFile(ok, []byte(`Promise.resolve().then(() => console.log("ok done"));`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`throw new Error("broken");`), 0o644))

	code, out, errOut := runCLI(t, "batch", "-j", "2", ok, bad)
	assert.Equal(t, ExitSoftware, code)
	assert.Equal(t, "== "+ok+"\nok done\n== "+bad+"\n", out)
	assert.Contains(t, errOut, "Uncaught Error: broken")

	code, _, _ = runCLI(t, "batch", ok)
	assert.Equal(t, ExitSuccess, code)

	code, _, errOut = runCLI(t, "batch")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "requires at least 1 arg")
}
