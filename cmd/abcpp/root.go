package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fwessels/abcpp/internal/config"
	"github.com/fwessels/abcpp/internal/diag"
	"github.com/fwessels/abcpp/internal/preprocessor"
	"github.com/fwessels/abcpp/internal/watcher"
)

var (
	version = "1.4.5"
	date    = "2 September 2012"
)

// errReported is returned once a diagnostic has already been printed.
var errReported = errors.New("reported")

// shorthands keep their single-dash meaning; any other -NAME or
// -NAME=value defines a symbol or macro.
const shorthands = "scpnabkowehv"

var boolFlags = []struct {
	name, short, usage string
	field              func(*preprocessor.Options) *bool
}{
	{"strip", "s", "strip input of w: fields and decorations", func(o *preprocessor.Options) *bool { return &o.Strip }},
	{"strip-chords", "c", `strip input of accompaniment "chords"`, func(o *preprocessor.Options) *bool { return &o.StripChords }},
	{"plus-to-bracket", "p", "change old +abc+ style chords to new [abc] style", func(o *preprocessor.Options) *bool { return &o.PlusToBracket }},
	{"plus-to-bang", "n", "change +plus+ style decorations to !plus! style", func(o *preprocessor.Options) *bool { return &o.PlusToBang }},
	{"bang-to-plus", "a", "change !plus! style decorations to +plus+ style", func(o *preprocessor.Options) *bool { return &o.BangToPlus }},
	{"strip-bang", "b", "remove single '!'", func(o *preprocessor.Options) *bool { return &o.StripBang }},
	{"bang-to-break", "k", "change single '!' to !break! (or +break+ with -a)", func(o *preprocessor.Options) *bool { return &o.BangToBreak }},
	{"override", "o", "command line macros override defines in input", func(o *preprocessor.Options) *bool { return &o.Override }},
	{"no-warnings", "w", "suppress warnings", func(o *preprocessor.Options) *bool { return &o.NoWarnings }},
	{"fatal-warnings", "e", "turn warnings into fatal errors", func(o *preprocessor.Options) *bool { return &o.FatalWarnings }},
}

// rewriteLegacyArgs turns -NAME and -NAME=value into --define arguments.
func rewriteLegacyArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		switch {
		case a == "--":
			return append(out, args[i:]...)
		case len(a) < 2 || a[0] != '-' || a[1] == '-':
			out = append(out, a)
		case len(a) == 2 && strings.IndexByte(shorthands, a[1]) >= 0:
			out = append(out, a)
		default:
			out = append(out, "--define="+a[1:])
		}
	}
	return out
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(rewriteLegacyArgs(args))
	return cmd.Execute()
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		defines    []string
		libDir     string
		configFile string
		watch      bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   diag.Program + " [flags] [-SYM -SYM=def ...] [input] [output]",
		Short: "ABC music notation preprocessor",
		Long: `abcpp reads ABC notation, expands #define macros, evaluates #ifdef blocks,
pulls in #include files and restyles decorations and chords.

Input defaults to stdin and output to stdout.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("%s, {{.Version}}  %s\n", diag.Program, date))

	for _, b := range boolFlags {
		cmd.Flags().BoolP(b.name, b.short, false, b.usage)
	}
	cmd.Flags().StringArrayVar(&defines, "define", nil, "define `NAME` or NAME=value before reading the input")
	cmd.Flags().StringVar(&libDir, "lib-dir", "", "directory searched for #include <file> (default "+preprocessor.DefaultLibDir+")")
	cmd.Flags().StringVar(&configFile, "config", "", "options file (.toml or .yaml)")
	cmd.Flags().BoolVar(&watch, "watch", false, "preprocess again whenever the input or an included file changes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace files read and written")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

		r := diag.NewReporter(stderr)
		fail := func(format string, a ...any) error {
			r.Report(r.Fail(0, format, a...))
			return errReported
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		opts := cfg.Options()
		for _, b := range boolFlags {
			if cmd.Flags().Changed(b.name) {
				*b.field(&opts), _ = cmd.Flags().GetBool(b.name)
			}
		}
		if libDir != "" {
			opts.LibDir = libDir
		}

		j := &job{
			opts:    opts,
			defines: append(cfg.DefineArgs(), defines...),
			stdin:   stdin,
			stdout:  stdout,
			stderr:  stderr,
			logger:  logger,
		}
		switch len(args) {
		case 2:
			j.output = args[1]
			fallthrough
		case 1:
			j.input = args[0]
		case 0:
		default:
			return fail("Too many files specified.")
		}
		if j.output != "" && samePath(j.input, j.output) {
			return fail("Input (%s) and output (%s) cannot be the same.", j.input, j.output)
		}

		if !watch {
			_, err := j.run()
			return err
		}
		if j.output == "" {
			return fail("--watch needs both an input and an output file.")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		included, _ := j.run()
		return watcher.Run(ctx, watcher.Opts{
			Paths: func() []string {
				return append([]string{j.input}, included...)
			},
			Changed: func() {
				included, _ = j.run()
			},
			Settle: 100 * time.Millisecond,
			Logger: logger,
		})
	}
	return cmd
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// job is one complete preprocessing run with fresh state.
type job struct {
	opts          preprocessor.Options
	defines       []string
	input, output string

	stdin          io.Reader
	stdout, stderr io.Writer
	logger         *slog.Logger
}

// run returns the files included along the way. Any error has already been
// printed.
func (j *job) run() ([]string, error) {
	p := preprocessor.NewPreprocessor(j.opts, j.stderr)
	p.Logger = j.logger
	r := p.Reporter()
	fail := func(err error) ([]string, error) {
		r.Report(err)
		return p.Included(), errReported
	}

	in := j.stdin
	if j.input != "" {
		f, err := os.Open(j.input)
		if err != nil {
			return fail(r.Fail(0, "Can't open '%s' for input.", j.input))
		}
		defer f.Close()
		in = f
	}

	out := j.stdout
	if j.output != "" {
		f, err := os.Create(j.output)
		if err != nil {
			return fail(r.Fail(0, "Can't open '%s' for output.", j.output))
		}
		defer f.Close()
		out = f
	}

	if err := p.Prepare(j.defines...); err != nil {
		return fail(err)
	}

	start := time.Now()
	if err := p.Process(j.input, in, out); err != nil {
		return fail(err)
	}
	j.logger.Info("preprocessed",
		"input", r.Current().Filename,
		"included", len(p.Included()),
		"warnings", r.Warnings(),
		"elapsed", time.Since(start))
	return p.Included(), nil
}
