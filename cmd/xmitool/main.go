// Command xmitool inspects and mutates the event stream of an XMI resource.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/relkit/shatterkit/internal/toolenv"
	"github.com/relkit/shatterkit/xmi"
)

func main() {
	cmd := &cli.Command{
		Name:  "xmitool",
		Usage: "inspect and mutate XMI event streams",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			scanCommand(),
			removeAPIControlCommand(),
			setLoopCountCommand(),
			unifyLoopsCommand(),
			zeroRBRNCountCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var controllerNames = map[xmi.ControllerKind]string{
	xmi.IndirectControl:     "IndirectControl",
	xmi.For:                 "For",
	xmi.Next:                "Next",
	xmi.Callback:            "Callback",
	xmi.SequenceBranchIndex: "SequenceBranchIndex",
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "print the offsets of every recognized controller message",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: xmitool scan FILE")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			result, err := xmi.Scan(data)
			if err != nil {
				return err
			}

			for kind, offsets := range result.ControllerOffsets {
				fmt.Printf("%s: %v\n", controllerNames[kind], offsets)
			}
			if result.RBRNCountOffset >= 0 {
				fmt.Printf("RBRN count offset: %d\n", result.RBRNCountOffset)
			}
			return nil
		},
	}
}

// loadAndScan reads path, scans it, and returns the data and scan result,
// so every mutating subcommand shares the same load-and-scan head.
func loadAndScan(path string) ([]byte, *xmi.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	result, err := xmi.Scan(data)
	if err != nil {
		return nil, nil, err
	}
	return data, result, nil
}

func removeAPIControlCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove-api-control",
		Usage:     "obliterate Callback and IndirectControl messages",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("xmitool", "info", cmd.Bool("verbose"))

			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: xmitool remove-api-control FILE")
			}
			data, result, err := loadAndScan(path)
			if err != nil {
				return err
			}

			mutator := xmi.NewMutator(data, result)
			mutator.RemoveAPIControl()

			logger.Info("removed API control messages", "file", path)
			return os.WriteFile(path, data, 0o644)
		},
	}
}

func unifyLoopsCommand() *cli.Command {
	return &cli.Command{
		Name:      "unify-loops",
		Usage:     "replace multiple infinite loops with one outer loop",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("xmitool", "info", cmd.Bool("verbose"))

			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: xmitool unify-loops FILE")
			}
			data, result, err := loadAndScan(path)
			if err != nil {
				return err
			}

			mutator := xmi.NewMutator(data, result)
			pairs := mutator.IdentifyInfiniteLoops()
			mutator.UnifyLoops(pairs)

			logger.Info("unified infinite loops", "file", path, "loop_count", len(pairs))
			return os.WriteFile(path, data, 0o644)
		},
	}
}

func setLoopCountCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-loop-count",
		Usage:     "set every infinite loop's iteration count",
		ArgsUsage: "FILE COUNT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("xmitool", "info", cmd.Bool("verbose"))

			if cmd.Args().Len() < 2 {
				return fmt.Errorf("usage: xmitool set-loop-count FILE COUNT")
			}
			path := cmd.Args().Get(0)
			count, err := strconv.ParseUint(cmd.Args().Get(1), 10, 8)
			if err != nil {
				return fmt.Errorf("parsing COUNT: %w", err)
			}

			data, result, err := loadAndScan(path)
			if err != nil {
				return err
			}

			mutator := xmi.NewMutator(data, result)
			pairs := mutator.IdentifyInfiniteLoops()
			mutator.SetAllLoops(pairs, byte(count))

			logger.Info("set loop count", "file", path, "count", count, "loop_count", len(pairs))
			return os.WriteFile(path, data, 0o644)
		},
	}
}

func zeroRBRNCountCommand() *cli.Command {
	return &cli.Command{
		Name:      "zero-rbrn-count",
		Usage:     "zero out the RBRN chunk's sequence-branch count",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := toolenv.NewLogger("xmitool", "info", cmd.Bool("verbose"))

			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: xmitool zero-rbrn-count FILE")
			}
			data, result, err := loadAndScan(path)
			if err != nil {
				return err
			}

			mutator := xmi.NewMutator(data, result)
			mutator.ZeroRBRNCount()

			logger.Info("zeroed RBRN count", "file", path)
			return os.WriteFile(path, data, 0o644)
		},
	}
}
