package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show ranked retrieval results without generating an answer",
	Long: `Run the retrieval side of the pipeline and print the assembled
context with its chunk attribution. Useful for inspecting what an
answer would be grounded on.

Examples:
  bookwise search -q "sampling strategies"
  bookwise search -q "sampling" --docs handbook.pdf`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&askQuery, "query", "q", "", "query to search for (required)")
	searchCmd.Flags().StringVarP(&askProjectID, "project", "p", "", "restrict retrieval to one project ID")
	searchCmd.Flags().StringVar(&askProjectInfo, "project-info", "", "project description used to steer reformulation")
	searchCmd.Flags().StringSliceVar(&askDocs, "docs", nil, "restrict retrieval to these document IDs or filenames")
	searchCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of candidates to retrieve (default from config)")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ans, closeStore, err := newAnswerer()
	if err != nil {
		return err
	}
	defer closeStore()

	assembled, err := ans.Retrieve(cmd.Context(), askQuery, answerOptions(GetConfig()))
	if err != nil {
		return err
	}

	if assembled.Text == "" {
		fmt.Println("No results.")
		return nil
	}

	fmt.Println(assembled.Text)
	fmt.Printf("\n%d chunks, %d tokens\n", assembled.ChunksUsed, assembled.TokensUsed)
	return nil
}
