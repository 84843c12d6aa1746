package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRewriteLegacyArgs(t *testing.T) {
	testCases := []struct {
		args []string
		want []string
	}{
		{[]string{"-s", "-c", "in.abp"}, []string{"-s", "-c", "in.abp"}},
		{[]string{"-DEBUG", "-V=1.0"}, []string{"--define=DEBUG", "--define=V=1.0"}},
		{[]string{"-x"}, []string{"--define=x"}},
		{[]string{"-sc"}, []string{"--define=sc"}},
		{[]string{"--strip", "--lib-dir", "/lib"}, []string{"--strip", "--lib-dir", "/lib"}},
		{[]string{"-s", "--", "-odd.abp"}, []string{"-s", "--", "-odd.abp"}},
		{[]string{"-"}, []string{"-"}},
	}
	for _, tc := range testCases {
		if diff := cmp.Diff(tc.want, rewriteLegacyArgs(tc.args)); diff != "" {
			t.Errorf("%v: mismatch (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tune.abp")
	if err := os.WriteFile(in, []byte("#ifdef DEBUG\nw: x\ndebug!x!\n#endif\nV\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "abcpp.toml")
	if err := os.WriteFile(cfg, []byte("strip = true\nsymbols = [\"DEBUG\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name   string
		args   []string
		stdin  string
		stdout string
		file   string
	}{
		{
			name: "files",
			args: []string{"-s", "-DEBUG", "-V=1.0", in, filepath.Join(dir, "out1.abc")},
			file: "debug\n1.0\n",
		},
		{
			name:   "stdout",
			args:   []string{"-V=2", in},
			stdout: "2\n",
		},
		{
			name:   "stdin",
			args:   []string{"-p"},
			stdin:  "+CEG+\n",
			stdout: "[CEG]\n",
		},
		{
			name:   "long flags",
			args:   []string{"--bang-to-plus", "--define", "T=x"},
			stdin:  "!trill!T\n",
			stdout: "+trill+x\n",
		},
		{
			name:   "config",
			args:   []string{"--config", cfg, in},
			stdout: "debug\nV\n",
		},
		{
			name:   "flag beats config",
			args:   []string{"--config", cfg, "--strip=false", in},
			stdout: "w: x\ndebug!x!\nV\n",
		},
		{
			name:   "version",
			args:   []string{"--version"},
			stdout: "abcpp, 1.4.5  2 September 2012\n",
		},
	}
	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := execute(tc.args, strings.NewReader(tc.stdin), &stdout, &stderr); err != nil {
				t.Fatalf("execute: %v\n%s", err, stderr.String())
			}
			if diff := cmp.Diff(tc.stdout, stdout.String()); diff != "" {
				t.Errorf("stdout mismatch (-want +got):\n%s", diff)
			}
			if tc.file != "" {
				got, err := os.ReadFile(tc.args[len(tc.args)-1])
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(tc.file, string(got)); diff != "" {
					t.Errorf("output file mismatch (-want +got):\n%s", diff)
				}
			}
			if stderr.Len() != 0 {
				t.Errorf("case %d: unexpected diagnostics: %s", i, stderr.String())
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tune.abp")
	if err := os.WriteFile(in, []byte("ok\n#else\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.abp")

	testCases := []struct {
		args   []string
		stderr string
	}{
		{
			[]string{in, in},
			"abcpp: *** error on command line: Input (" + in + ") and output (" + in + ") cannot be the same.\n",
		},
		{
			[]string{"a", "b", "c"},
			"abcpp: *** error on command line: Too many files specified.\n",
		},
		{
			[]string{missing},
			"abcpp: *** error on command line: Can't open '" + missing + "' for input.\n",
		},
		{
			[]string{"-n", "-p", in},
			"abcpp: *** error on command line: both -n and -p specified - inconsistent behaviour.\n",
		},
		{
			[]string{in},
			"abcpp: *** error on line 2:1: #else without #ifdef.\n",
		},
		{
			[]string{"-e", "-b", "-k", "-A=1", "-A=2"},
			"abcpp: *** warning on command line: Symbol 'A' redefined.\n",
		},
		{
			[]string{"--watch", in},
			"abcpp: *** error on command line: --watch needs both an input and an output file.\n",
		},
	}
	for _, tc := range testCases {
		var stdout, stderr bytes.Buffer
		err := execute(tc.args, strings.NewReader(""), &stdout, &stderr)
		if !errors.Is(err, errReported) {
			t.Errorf("%v: got %v, want a reported error", tc.args, err)
		}
		if diff := cmp.Diff(tc.stderr, stderr.String()); diff != "" {
			t.Errorf("%v: mismatch (-want +got):\n%s", tc.args, diff)
		}
	}
}
