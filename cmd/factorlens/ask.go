package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-factorlens/infrastructure/render"
	"github.com/ahrav/go-factorlens/internal/application"
)

var (
	askOutput string
	askPlain  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <item>",
	Short: "Analyze an item and print the report",
	Long: `Submit an item, wait for the final ranked factors and print a report
with the factor table, importance bars, recommendations and the
price-to-performance score.

Use -o to also write the report as markdown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "", "Write the markdown report to this file")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Print raw markdown instead of styled output")
}

func runAsk(cmd *cobra.Command, args []string) error {
	item := strings.Join(args, " ")

	final, err := collect(cmd.Context(), item)
	if err != nil && len(final.Factors) == 0 {
		return errors.New(application.UserMessage(err))
	}

	var md bytes.Buffer
	if rerr := render.Report(&md, item, final.Factors, final.Report); rerr != nil {
		return rerr
	}

	if askOutput != "" {
		if werr := os.WriteFile(askOutput, md.Bytes(), 0o644); werr != nil {
			return fmt.Errorf("write report: %w", werr)
		}
		logger.Info("report written", zap.String("path", askOutput))
	}

	out := md.String()
	if !askPlain {
		if styled, gerr := glamour.Render(out, cfg.Display.Theme); gerr == nil {
			out = styled
		} else {
			logger.Debug("styled output unavailable", zap.Error(gerr))
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if err != nil {
		// Partial results were printed; still report the failure.
		return errors.New(application.UserMessage(err))
	}
	return nil
}

// collect submits item and waits for its final factors, bounded by the
// --timeout flag. On failure it returns whatever arrived before it.
func collect(ctx context.Context, item string) (application.Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := newAnalyzer().Start(ctx, item)
	if err != nil {
		return application.Update{}, err
	}
	logger.Debug("job submitted", zap.String("job_id", s.JobID()), zap.String("session_id", s.ID()))

	final, err := s.Collect(ctx, func(u application.Update) {
		logger.Debug("update",
			zap.Int("factors", len(u.Factors)),
			zap.Bool("finalized", u.Finalized),
		)
	})
	if err == nil && !final.Finalized {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s waiting for final results: %w", timeout, err)
	}
	return final, err
}
