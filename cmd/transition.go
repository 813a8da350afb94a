package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"holiday/holiday"
	"holiday/orchestrator"
	"holiday/saga"
	"holiday/style"
)

var plain bool

var vacationCmd = &cobra.Command{
	Use:     "vacation",
	Short:   "Serve placeholder pages and scale every service to zero",
	Aliases: []string{"off"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, holiday.Vacation)
	},
}

var workCmd = &cobra.Command{
	Use:     "work",
	Short:   "Scale services back up and route traffic to them",
	Aliases: []string{"on"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, holiday.Work)
	},
}

func init() {
	for _, c := range []*cobra.Command{vacationCmd, workCmd} {
		c.Flags().BoolVar(&plain, "plain", false, "print step events line by line instead of the live view")
		rootCmd.AddCommand(c)
	}
}

func runTransition(cmd *cobra.Command, mode holiday.Mode) error {
	// A signal stops the transition at the next step boundary; calls
	// already issued finish first.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	live := !plain && term.IsTerminal(int(os.Stdout.Fd()))
	e, err := newEnv(ctx, live)
	if err != nil {
		return err
	}
	defer e.close()

	if live {
		return runLive(ctx, cmd.ErrOrStderr(), e, mode)
	}
	return runPlain(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), e, mode)
}

func runPlain(ctx context.Context, out, errOut io.Writer, e *env, mode holiday.Mode) error {
	var mu sync.Mutex
	f := &saga.PlainFormatter{}
	e.journal.OnAppend = func(evt saga.Event) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(out, f.Format([]saga.Event{evt}))
	}

	rep, err := e.orch.Enter(ctx, mode)
	if err != nil {
		reportApplied(errOut, rep)
		return err
	}
	fmt.Fprintln(out, style.SuccessBox.Render("✓ "+rep.Summary()))
	return nil
}

// reportApplied lists the steps that took effect before a failure. Nothing
// is rolled back, so the operator needs to know.
func reportApplied(w io.Writer, rep *orchestrator.Report) {
	if rep == nil {
		return
	}
	var applied []string
	for _, s := range rep.Steps {
		if s.Status == orchestrator.StatusPerformed {
			applied = append(applied, s.Step+" "+s.Resource)
		}
	}
	if len(applied) == 0 {
		return
	}
	fmt.Fprintln(w, style.Warning.Render("already applied: "+strings.Join(applied, ", ")))
}
