package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoth-station/resultstore/pkg/types"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List document ids",
	Long: `List the ids of all documents stored for the selected result type.

Examples:
  resultstore list
  resultstore --type adviser list --limit 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		n := 0
		for id, err := range store.DocumentListing(cmd.Context()) {
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			n++
			if listLimit > 0 && n >= listLimit {
				break
			}
		}
		return nil
	},
}

// iterateLine is one line of iterate output.
type iterateLine struct {
	ID       string         `json:"id"`
	Document types.Document `json:"document"`
}

var iterateCmd = &cobra.Command{
	Use:   "iterate",
	Short: "Print every stored document as JSON lines",
	Long: `Print each stored document with its id, one JSON object per line.
Stops at the first document that cannot be read.

Examples:
  resultstore iterate > analyses.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for r, err := range store.IterateResults(cmd.Context()) {
			if err != nil {
				if r.ID != "" {
					return fmt.Errorf("%s: %w", r.ID, err)
				}
				return err
			}
			if err := enc.Encode(iterateLine{ID: r.ID, Document: r.Document}); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "stop after this many ids (0 = no limit)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(iterateCmd)
}
