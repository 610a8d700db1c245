package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-factorlens/infrastructure/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	m := tui.New(cmd.Context(), newAnalyzer(),
		tui.WithTheme(cfg.Display.Theme),
		tui.WithLogger(logger),
	)

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if fm, ok := final.(tui.Model); ok {
		fm.Close()
	}
	return err
}
