package interp_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/interp"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// Expectation is the outcome a script declares in its comments.
type Expectation struct {
	ResultType string // "value", "runtime_error", "compile_error"
	Value      string
	// Output holds the expected stdout lines, in order.
	Output []string
}

var expectRegex = regexp.MustCompile(`^//\s*(expect(?:_runtime_error|_compile_error|_output)?):\s?(.*)`)

// parseExpectation extracts expectations from lines like:
//
//	// expect: value
//	// expect_runtime_error: message
//	// expect_compile_error: message
//	// expect_output: line printed to stdout
func parseExpectation(script string) (*Expectation, error) {
	exp := &Expectation{}
	scanner := bufio.NewScanner(strings.NewReader(script))
	for scanner.Scan() {
		m := expectRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		text := strings.TrimRight(m[2], " \t")
		switch m[1] {
		case "expect":
			exp.ResultType, exp.Value = "value", text
		case "expect_runtime_error":
			exp.ResultType, exp.Value = "runtime_error", text
		case "expect_compile_error":
			exp.ResultType, exp.Value = "compile_error", text
		case "expect_output":
			exp.Output = append(exp.Output, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	if exp.ResultType == "" && exp.Output == nil {
		return nil, fmt.Errorf("no expectation comment found (e.g., // expect: value)")
	}
	return exp, nil
}

// scriptRun is the observable outcome of running one script to quiescence.
type scriptRun struct {
	completion value.Completion
	parseErr   error
	stdout     string
	uncaught   []value.Value
	jobsErr    error
}

func runSource(t *testing.T, src string) *scriptRun {
	t.Helper()
	run := &scriptRun{}
	var stdout, stderr bytes.Buffer
	agent := runtime.NewAgent(runtime.WithHooks(runtime.Hooks{
		OnUncaughtException: func(v value.Value) { run.uncaught = append(run.uncaught, v) },
	}))
	realm, err := builtins.NewRealm(agent, builtins.Options{Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	in := interp.New(realm)
	defer in.Close()

	run.completion, run.parseErr = in.EvaluateString(src)
	if run.parseErr == nil {
		run.jobsErr = agent.RunJobs(context.Background())
	}
	run.stdout = stdout.String()
	return run
}

func TestScripts(t *testing.T) {
	scriptDir := filepath.Join("testdata", "scripts")
	files, err := os.ReadDir(scriptDir)
	require.NoError(t, err)

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".js") {
			continue
		}
		scriptPath := filepath.Join(scriptDir, file.Name())
		t.Run(strings.TrimSuffix(file.Name(), ".js"), func(t *testing.T) {
			src, err := os.ReadFile(scriptPath)
			require.NoError(t, err)
			exp, err := parseExpectation(string(src))
			if err != nil {
				t.Skipf("%s: %v", scriptPath, err)
			}

			run := runSource(t, string(src))
			if exp.ResultType == "compile_error" {
				require.Error(t, run.parseErr, "expected a syntax error containing %q", exp.Value)
				assert.Contains(t, run.parseErr.Error(), exp.Value)
				return
			}
			require.NoError(t, run.parseErr)
			require.NoError(t, run.jobsErr)

			switch exp.ResultType {
			case "value":
				require.False(t, run.completion.IsAbrupt(), "uncaught %s", builtins.ErrorSummary(run.completion.Value))
				assert.Equal(t, exp.Value, builtins.Inspect(run.completion.Value))
			case "runtime_error":
				require.True(t, run.completion.IsThrow(), "expected a throw, got %s", builtins.Inspect(run.completion.ValueOrUndefined()))
				assert.Contains(t, builtins.ErrorSummary(run.completion.Value), exp.Value)
			}
			if exp.Output != nil {
				want := strings.Join(exp.Output, "\n") + "\n"
				assert.Equal(t, want, run.stdout)
			}
		})
	}
}
