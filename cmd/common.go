package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"strata/internal/formatting"
)

// withStack builds the stack for the current settings, runs fn and releases
// the backends afterwards.
func withStack(cmd *cobra.Command, fn func(ctx context.Context, st *stack) error) error {
	ctx := cmdContext(cmd)
	st, err := newStack(ctx, currentSettings())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func newFormatter(cmd *cobra.Command, output string) (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(output)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	return formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Color:  formatting.ColorEnabled(out),
		Output: out,
	}), nil
}

// completeServiceNames offers the services of the current configuration.
func completeServiceNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	_ = withStack(cmd, func(ctx context.Context, st *stack) error {
		names = st.registry.Names()
		return nil
	})
	return names, cobra.ShellCompDirectiveNoFileComp
}

// progress shows a spinner on terminals while a blocking action runs.
type progress struct {
	s     *spinner.Spinner
	out   io.Writer
	color bool
}

func newProgress(out io.Writer, quiet bool) *progress {
	if quiet {
		return &progress{}
	}
	p := &progress{out: out, color: formatting.ColorEnabled(out)}
	if f, ok := out.(*os.File); ok && p.color {
		p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	}
	return p
}

func (p *progress) start(msg string) {
	if p.s == nil {
		return
	}
	p.s.Suffix = " " + msg
	p.s.Start()
}

// done stops the spinner and prints the outcome of the step.
func (p *progress) done(msg string, err error) {
	if p.s != nil {
		p.s.Stop()
	}
	if p.out == nil {
		return
	}
	if err != nil {
		_, _ = io.WriteString(p.out, p.mark(text.FgRed, "✗")+" "+msg+": "+err.Error()+"\n")
		return
	}
	_, _ = io.WriteString(p.out, p.mark(text.FgGreen, "✓")+" "+msg+"\n")
}

func (p *progress) mark(c text.Color, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}
