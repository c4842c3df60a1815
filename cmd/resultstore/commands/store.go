package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoth-station/resultstore/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store <file>...",
	Short: "Validate and store result documents",
	Long: `Validate JSON result documents and store them under their metadata.hostname.

A document stored for a hostname that already has one replaces it.
Use "-" to read a document from standard input.

Examples:
  resultstore store result.json
  cat result.json | resultstore --type solver store -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		for _, path := range args {
			doc, err := readDocument(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			id, err := store.StoreDocument(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func readDocument(stdin io.Reader, path string) (types.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := types.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func init() {
	rootCmd.AddCommand(storeCmd)
}
