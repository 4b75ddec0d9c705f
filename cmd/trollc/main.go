// Command trollc compiles a Troll source file to a bytecode chunk file
// (§6). Exit codes: 65 on compile error, 74 on I/O error, 64 on usage
// error — the CLI-layer conventions named in §6, carried in the same
// single-root-command cobra shape used across this codebase's tools.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"troll/internal/codec"
	"troll/internal/compiler"
)

const (
	exitCompileError = 65
	exitIOError      = 74
	exitUsageError   = 64
)

var (
	outPath string
	verbose bool
	log     = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:          "trollc <file>",
		Short:        "Compile a Troll source file to a bytecode chunk",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVar(&outPath, "out", "", "output path (default: source path with its last character replaced by 'g')")
	root.Flags().BoolVar(&verbose, "verbose", false, "log compilation progress to stderr")

	if err := root.Execute(); err != nil {
		if _, ok := err.(compileError); !ok {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(exitFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetOutput(os.Stderr)

	path := args[0]
	log.WithField("file", path).Debug("reading source")

	source, err := os.ReadFile(path)
	if err != nil {
		return ioError{err}
	}

	chk, err := compiler.Compile(string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return compileError{err}
	}

	dest := outPath
	if dest == "" {
		dest = historicalOutputName(path)
	}

	f, err := os.Create(dest)
	if err != nil {
		return ioError{err}
	}
	defer f.Close()

	if err := codec.Save(f, chk); err != nil {
		return ioError{err}
	}
	log.WithField("file", dest).Info("wrote bytecode chunk")
	return nil
}

// historicalOutputName replaces the last character of the source path
// with 'g' — the historical convention named in §6 (".tr" sources become
// ".tg" chunks).
func historicalOutputName(path string) string {
	if len(path) == 0 {
		return "g"
	}
	return path[:len(path)-1] + "g"
}

type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }

type compileError struct{ err error }

func (e compileError) Error() string { return e.err.Error() }

func exitFor(err error) int {
	switch err.(type) {
	case compileError:
		return exitCompileError
	case ioError:
		return exitIOError
	default:
		return exitUsageError
	}
}
