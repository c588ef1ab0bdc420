// Package shell implements the operator REPL: a line-oriented console
// that starts a cluster and drives Propose/Query/Exit against it. Each
// line is tokenized and dispatched through a cobra command tree rather
// than a hand-rolled switch, matching this project's CLI stack.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go-quorum/internal/harness"
	"go-quorum/internal/wire"
)

// Shell owns the current cluster, if one has been started, and the
// output stream commands print to.
type Shell struct {
	out     io.Writer
	cluster *harness.Cluster

	basePort       int
	connectTimeout time.Duration
	writeTimeout   time.Duration

	replicaCount int
	manualMode   bool
	debug        bool
}

// New builds a Shell that writes output to out and starts clusters on
// basePort with the given per-connection timeouts. When manualMode is
// false, Run brings up a replicaCount-sized cluster itself before reading
// the first command, instead of waiting for an operator "start". debug is
// forwarded to every replica and proxy the shell starts.
func New(out io.Writer, basePort int, connectTimeout, writeTimeout time.Duration, replicaCount int, manualMode bool, debug bool) *Shell {
	return &Shell{
		out:            out,
		basePort:       basePort,
		connectTimeout: connectTimeout,
		writeTimeout:   writeTimeout,
		replicaCount:   replicaCount,
		manualMode:     manualMode,
		debug:          debug,
	}
}

// Run reads lines from in until EOF or an "exit"/"x" command, printing a
// "Paxos> " prompt before each one and pausing briefly after every
// command so a replica's own log lines don't interleave with the next
// prompt. Unless manualMode was set, it auto-starts a replicaCount-sized
// cluster first, the same way the "start" command would.
func (s *Shell) Run(in io.Reader) {
	if !s.manualMode {
		c, err := harness.Start(s.replicaCount, s.basePort, s.connectTimeout, s.writeTimeout, s.debug)
		if err != nil {
			fmt.Fprintf(s.out, "auto-start: %v\n", err)
		} else {
			s.cluster = c
			fmt.Fprintf(s.out, "started %d replicas on base port %d\n", s.replicaCount, s.basePort)
		}
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, "Paxos> ")
	for scanner.Scan() {
		line := scanner.Text()
		cmd := s.newRootCommand()
		cmd.SetArgs(tokenize(line))
		cmd.SetOut(s.out)
		cmd.SetErr(s.out)
		if err := cmd.Execute(); err != nil {
			fmt.Fprintln(s.out, err)
		}
		if isExit(line) {
			return
		}
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(s.out, "Paxos> ")
	}
}

func isExit(line string) bool {
	toks := tokenize(line)
	return len(toks) == 1 && (toks[0] == "x" || toks[0] == "exit")
}

func tokenize(line string) []string {
	return strings.Fields(strings.ToLower(line))
}

func (s *Shell) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "paxos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(s.startCommand())
	root.AddCommand(s.proposeCommand())
	root.AddCommand(s.queryCommand())
	root.AddCommand(s.exitCommand())
	return root
}

func (s *Shell) startCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start <n>",
		Aliases: []string{"s"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("start: %q is not a replica count", args[0])
			}
			c, err := harness.Start(n, s.basePort, s.connectTimeout, s.writeTimeout, s.debug)
			if err != nil {
				return err
			}
			s.cluster = c
			fmt.Fprintf(cmd.OutOrStdout(), "started %d replicas on base port %d\n", n, s.basePort)
			return nil
		},
	}
	return cmd
}

func (s *Shell) proposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "propose <id> <value>",
		Aliases: []string{"p"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cluster == nil {
				return fmt.Errorf("propose: no cluster started yet")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("propose: %q is not a replica id", args[0])
			}
			val, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("propose: %q is not a value", args[1])
			}
			return s.cluster.Propose(id, wire.Value(val))
		},
	}
	return cmd
}

func (s *Shell) queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query <id>",
		Aliases: []string{"q"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cluster == nil {
				return fmt.Errorf("query: no cluster started yet")
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("query: %q is not a replica id", args[0])
			}
			return s.cluster.Query(id)
		},
	}
	return cmd
}

func (s *Shell) exitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exit",
		Aliases: []string{"x"},
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cluster != nil {
				s.cluster.Stop()
			}
			return nil
		},
	}
	return cmd
}
