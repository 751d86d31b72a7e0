package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookwise/config"
	"bookwise/internal/adapter/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chunk store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.StoreDBPath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Documents: %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("Store:     %s\n", config.StoreDBPath(GetRootDir()))
	return nil
}
