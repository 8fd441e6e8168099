package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/tui"
)

const maxPrintedSources = 3

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.Pipeline.Answer(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if ans.Kind == answer.KindGenerationFailed {
			fmt.Fprintln(out, "Generation failed:", ans.Text)
		} else {
			fmt.Fprintln(out, ans.Text)
		}

		if len(ans.Sources) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for i, src := range ans.Sources {
				if i == maxPrintedSources {
					break
				}
				fmt.Fprintf(out, "  - %s\n", src)
			}
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "Outcome: %s (%d generation attempts, %s)\n",
			ans.Kind, ans.Attempts, ans.Elapsed.Round(10*time.Millisecond))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of indexed chunks and where they are stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return printStats(cmd.Context(), cmd.OutOrStdout(), a)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		title := fmt.Sprintf("localrag %s (%s)", version, a.Config.GenerationModel)
		p := tea.NewProgram(tui.New(ctx, a.Pipeline, title), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	},
}
