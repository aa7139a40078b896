package main

import (
	"fmt"
	"strings"

	"solar-parcel-be/internal/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	askSession string
	askShowSQL bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Run a search and stream its progress",
	Long: `Send a natural-language question to the parcel finder.

Pass --session to continue an earlier conversation; the session id is printed after every
answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue an existing conversation")
	askCmd.Flags().BoolVar(&askShowSQL, "sql", false, "print the final SQL")
}

func runAsk(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)
	req := dto.SearchRequest{Query: strings.Join(args, " "), SessionId: askSession}

	var streamErr string
	err := client.stream(cmd.Context(), req, func(ev dto.StreamEvent) {
		switch ev.Type {
		case dto.StreamEventStatus:
			color.Cyan("… %s", ev.Step)
		case dto.StreamEventError:
			streamErr = ev.Error
		case dto.StreamEventResult:
			if ev.SearchResponse != nil {
				printResult(ev.SearchResponse)
			}
		}
	})
	if err != nil {
		return err
	}
	if streamErr != "" {
		color.Red("Search failed: %s", streamErr)
		return fmt.Errorf("search failed")
	}
	return nil
}

func printResult(res *dto.SearchResponse) {
	fmt.Println()
	switch res.Outcome {
	case "completed":
		color.Green("%s", res.Summary)
	case "exhausted", "needs_clarification":
		color.Yellow("%s", res.Summary)
	default:
		color.Red("%s", res.Summary)
	}

	for i, p := range res.Parcels {
		fmt.Printf("%3d. %s, %s County  %.1f acres  owner %s\n", i+1, p.Address, p.County, p.Acreage, p.OwnerName)
	}

	if askShowSQL && res.Sql != nil {
		fmt.Println()
		color.HiBlack("%s", *res.Sql)
	}

	fmt.Println()
	color.HiBlack("session %s  outcome %s  attempts %d  %dms", res.SessionId, res.Outcome, res.Attempts, res.DurationMs)
}
