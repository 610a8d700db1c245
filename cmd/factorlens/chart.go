package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-factorlens/infrastructure/render"
	"github.com/ahrav/go-factorlens/internal/application"
)

var chartOutput string

var chartCmd = &cobra.Command{
	Use:   "chart <item>",
	Short: "Analyze an item and save its importance chart",
	Long: `Submit an item, wait for the final ranked factors and write the
importance bar chart as SVG or PNG, chosen by the output extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "importance.svg", "Chart file (.svg or .png)")
}

func runChart(cmd *cobra.Command, args []string) error {
	format, err := render.FormatFromPath(chartOutput)
	if err != nil {
		return err
	}
	item := strings.Join(args, " ")

	final, err := collect(cmd.Context(), item)
	if err != nil && len(final.Factors) == 0 {
		return errors.New(application.UserMessage(err))
	}
	if err != nil {
		logger.Warn("charting partial results", zap.Error(err))
	}

	f, err := os.Create(chartOutput)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := render.Chart(f, item, final.Report.Importance, format); err != nil {
		_ = f.Close()
		_ = os.Remove(chartOutput)
		if errors.Is(err, render.ErrNoChartData) {
			return errors.New(render.EmptyChartMessage)
		}
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d factors)\n", chartOutput, len(final.Factors))
	return nil
}
