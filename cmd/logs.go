package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"strata/internal/formatting"
	"strata/internal/logstream"
	"strata/internal/services"
)

func newLogsCmd() *cobra.Command {
	var (
		follow     bool
		tail       int
		since      string
		until      string
		timestamps bool
	)
	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show service logs",
		Long: `Prints the last lines of output of the named services, or of every service.
With --follow the output keeps streaming until interrupted; several services
are followed concurrently and their lines interleaved.

--since and --until accept an RFC 3339 timestamp or a duration relative to
now, such as 10m.`,
		ValidArgsFunction: completeServiceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			opts := services.LogOptions{Follow: follow, Tail: tail, Timestamps: timestamps}
			var err error
			if opts.Since, err = parseTimeFlag(since, now); err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			if opts.Until, err = parseTimeFlag(until, now); err != nil {
				return fmt.Errorf("--until: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			out := cmd.OutOrStdout()
			return withStack(cmd, func(ctx context.Context, st *stack) error {
				p := newLogPrinter(out, logNames(st.registry, args), formatting.ColorEnabled(out))
				return st.registry.FollowLogs(ctx, args, opts, p.print)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&tail, "tail", "n", services.DefaultTail, "Number of lines to show from the end of the logs (-1 for all)")
	cmd.Flags().StringVar(&since, "since", "", "Show logs since timestamp or relative duration")
	cmd.Flags().StringVar(&until, "until", "", "Show logs before timestamp or relative duration")
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", false, "Show timestamps")
	return cmd
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration before now. An
// empty value yields the zero time.
func parseTimeFlag(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither a duration nor an RFC 3339 timestamp", v)
	}
	return t, nil
}

func logNames(r *services.Registry, names []string) []string {
	if len(names) > 0 {
		return names
	}
	return r.Names()
}

var logColors = []text.Color{text.FgCyan, text.FgMagenta, text.FgYellow, text.FgBlue, text.FgGreen, text.FgHiCyan}

// logPrinter prefixes each line with its service, padded to the longest
// name, as compose does.
type logPrinter struct {
	out     io.Writer
	width   int
	prefix  bool
	colors  map[string]text.Color
	colored bool
}

func newLogPrinter(out io.Writer, names []string, colored bool) *logPrinter {
	p := &logPrinter{out: out, prefix: len(names) > 1, colors: map[string]text.Color{}, colored: colored}
	for i, n := range names {
		if len(n) > p.width {
			p.width = len(n)
		}
		p.colors[n] = logColors[i%len(logColors)]
	}
	return p
}

func (p *logPrinter) print(rec services.LogRecord) {
	var b strings.Builder
	if p.prefix {
		name := fmt.Sprintf("%-*s |", p.width, rec.Service)
		if p.colored {
			name = p.colors[rec.Service].Sprint(name)
		}
		b.WriteString(name)
		b.WriteByte(' ')
	}
	if !rec.Timestamp.IsZero() {
		b.WriteString(rec.Timestamp.Format(time.RFC3339Nano))
		b.WriteByte(' ')
	}
	line := rec.Line
	if p.colored && rec.Stream == logstream.Stderr {
		line = text.FgRed.Sprint(line)
	}
	b.WriteString(line)
	b.WriteByte('\n')
	_, _ = io.WriteString(p.out, b.String())
}
