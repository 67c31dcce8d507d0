// Command simulate traces a command string through the rover engine without
// a server. It prints every applied step, the stop reason if any, and can
// draw the obstacle field around the final position.
//
//	simulate --x=-10659954.353273375 --y=10659954 --direction=E --scan=3 ffrf
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/marsrover/logging"
	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/journal"
	"github.com/wricardo/marsrover/rover/service"
)

func main() {
	logging.Setup("warn", "text")
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "trace rover commands offline",
		ArgsUsage: "<commands>",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "x", Usage: "landing x"},
			&cli.FloatFlag{Name: "y", Usage: "landing y"},
			&cli.StringFlag{Name: "direction", Aliases: []string{"d"}, Value: "N", Usage: "landing direction (N, S, E, W)"},
			&cli.IntFlag{Name: "scan", Usage: "draw obstacles this many steps around the final position"},
			&cli.BoolFlag{Name: "json", Usage: "print the batch result as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one command string, got %d arguments", cmd.Args().Len())
			}
			return simulate(ctx, cmd.Writer, options{
				X:         cmd.Float("x"),
				Y:         cmd.Float("y"),
				Direction: cmd.String("direction"),
				Commands:  cmd.Args().First(),
				Scan:      int(cmd.Int("scan")),
				JSON:      cmd.Bool("json"),
			})
		},
	}
}

type options struct {
	X, Y      float64
	Direction string
	Commands  string
	Scan      int
	JSON      bool
}

func simulate(ctx context.Context, out io.Writer, opts options) error {
	rover, err := engine.NewFromStrings(opts.X, opts.Y, opts.Direction)
	if err != nil {
		return err
	}

	svc, err := service.NewRoverService(service.Dependencies{
		Rover:   rover,
		Journal: journal.NewMemoryJournal(engine.MaxBatchCommands),
	})
	if err != nil {
		return err
	}

	result, err := svc.Execute(ctx, opts.Commands)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(out, result)
	if opts.Scan > 0 {
		fmt.Fprintln(out)
		printScan(out, result.EndPos, opts.Scan)
	}
	return nil
}

func printResult(out io.Writer, result *service.BatchResult) {
	fmt.Fprintf(out, "Start: %s facing %s\n", result.StartPos, result.StartDirection)

	for _, step := range result.Steps {
		marker := ""
		if step.PoleCrossed {
			marker = " (pole crossed)"
		}
		fmt.Fprintf(out, "%3d %s  %s %s -> %s %s%s\n",
			step.Idx, step.Command,
			step.From, step.FromDirection,
			step.To, step.ToDirection, marker)
	}

	if !result.Success {
		fmt.Fprintf(out, "Stopped on command %d: %s\n", result.StoppedOnCommand, result.StoppedReason)
	}
	fmt.Fprintf(out, "Executed %d/%d commands, %d pole crossings\n",
		result.CommandsExecuted, result.RequestedCommands, result.PoleCrossings)
	fmt.Fprintln(out, result.Rendered)
}

// printScan draws a (2r+1)x(2r+1) grid of step-sized cells centered on pos,
// north up. '#' marks an obstacle and 'R' the rover. Cells are not wrapped
// at the projection edge.
func printScan(out io.Writer, pos mercator.Coordinate, r int) {
	fmt.Fprintf(out, "Obstacles within %d steps of (%s):\n", r, pos)
	for dy := r; dy >= -r; dy-- {
		var row strings.Builder
		for dx := -r; dx <= r; dx++ {
			switch {
			case dx == 0 && dy == 0:
				row.WriteByte('R')
			case engine.IsObstacle(pos.Add(float64(dx)*engine.Movement, float64(dy)*engine.Movement)):
				row.WriteByte('#')
			default:
				row.WriteByte('.')
			}
		}
		fmt.Fprintln(out, row.String())
	}
}
