// Command tvm loads a Troll bytecode chunk file and executes it (§6).
// Exit codes: 70 on runtime error, 74 on I/O error, 64 on usage error —
// the same CLI-layer convention cmd/trollc uses, carried in the same
// single-root-command cobra shape.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"troll/internal/chunk"
	"troll/internal/codec"
	"troll/internal/vm"
)

const (
	exitRuntimeError = 70
	exitIOError      = 74
	exitUsageError   = 64
)

var (
	seed    int64
	verbose bool
	log     = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:           "tvm <file>",
		Short:         "Load and execute a compiled Troll bytecode chunk",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().Int64Var(&seed, "seed", 0, "seed for the dice/probability RNG (deterministic mode)")
	root.Flags().BoolVar(&verbose, "verbose", false, "log each executed opcode at debug level")

	if err := root.Execute(); err != nil {
		if _, ok := err.(runtimeError); !ok {
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
	log.WithField("file", path).Debug("loading chunk")

	f, err := os.Open(path)
	if err != nil {
		return ioError{err}
	}
	defer f.Close()

	chk, err := codec.Load(f)
	if err != nil {
		return ioError{err}
	}
	log.WithFields(logrus.Fields{
		"ops":       len(chk.Code),
		"constants": len(chk.Constants),
		"seed":      seed,
	}).Debug("executing chunk")

	machine := vm.New(seed)
	if verbose {
		machine.Trace = func(offset int) {
			line, _ := chunk.DisassembleInstruction(chk, offset)
			log.Debug(line)
		}
	}

	if err := machine.Interpret(chk); err != nil {
		log.WithError(err).Error("runtime error")
		os.Stderr.WriteString(err.Error())
		return runtimeError{err}
	}

	log.Info("run completed successfully")
	return nil
}

type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }

type runtimeError struct{ err error }

func (e runtimeError) Error() string { return e.err.Error() }

func exitFor(err error) int {
	switch err.(type) {
	case runtimeError:
		return exitRuntimeError
	case ioError:
		return exitIOError
	default:
		return exitUsageError
	}
}
