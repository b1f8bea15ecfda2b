package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheetmail/sheetmail/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sheetmail",
	Short: "Send a personalized HTML email to every row of a Google Sheet",
	Long: `sheetmail reads the rows of a Google Sheet, refuses to run when an address
is listed twice, and sends the HTML template to each row over SMTP,
the Gmail API or Resend. Configuration comes from the environment,
an optional .env file and an optional sheetmail.yaml.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSend,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch the sheet and check it for duplicate emails without sending",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var previewCmd = &cobra.Command{
	Use:   "preview [row]",
	Short: "Print the rendered email for one data row (1-based)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, _ []string) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { a.close(err) }()
	defer telemetry.Recover(a.log)

	mailer, err := a.mailer()
	if err != nil {
		return err
	}

	runner, err := a.runner(cmd.Context(), mailer)
	if err != nil {
		return err
	}

	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		a.reportFailures(res)
	}
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { a.close(err) }()

	runner, err := a.runner(cmd.Context(), nil)
	if err != nil {
		return err
	}

	rows, err := runner.Check(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rows, no duplicate emails\n", len(rows))
	return nil
}

func runPreview(cmd *cobra.Command, args []string) (err error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid row number %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { a.close(err) }()

	runner, err := a.runner(cmd.Context(), nil)
	if err != nil {
		return err
	}

	html, err := runner.Preview(cmd.Context(), n)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), html)
	return nil
}
