package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bookwise/config"
	"bookwise/internal/adapter/analyzer"
	"bookwise/internal/adapter/chunker"
	"bookwise/internal/adapter/docjson"
	"bookwise/internal/adapter/fs"
	"bookwise/internal/adapter/segmenter"
	"bookwise/internal/adapter/store"
	"bookwise/internal/usecase"
)

var ingestProjectID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest parsed-document JSON files",
	Long: `Ingest parsed-document JSON files from the given directory. Each
document is segmented, chunked, embedded, and stored in
.bookwise/chunks.db under the root directory.

Examples:
  bookwise ingest ./docs                  # Ingest a directory of documents
  bookwise ingest ./docs -p thesis        # Tag chunks with a project ID`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestProjectID, "project", "p", "", "project ID to tag chunks with")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureDataDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(config.StoreDBPath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Walk(path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(files) == 0 {
		fmt.Printf("No documents found under %s\n", path)
		return nil
	}

	tokenizer := analyzer.NewTokenizer()
	ing := usecase.NewIngestor(
		segmenter.New(slog.Default()),
		chunker.NewBounded(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens, tokenizer, slog.Default()),
		embedder,
		st,
		retryPolicy(cfg),
		cfg.Embedding.BatchSize,
		slog.Default(),
	)

	fmt.Printf("Ingesting %d documents from %s...\n", len(files), path)

	totalChunks := 0
	failed := 0
	for _, file := range files {
		doc, err := docjson.Load(file.Path)
		if err != nil {
			fmt.Printf("  skipping %s: %v\n", file.Path, err)
			failed++
			continue
		}

		bar := progressbar.NewOptions(-1,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Embedding[reset] %s", doc.Document.Filename)),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)

		n, err := ing.IngestDocument(cmd.Context(), doc, ingestProjectID, func(done, total int) {
			bar.ChangeMax(total)
			bar.Set(done)
		})
		if err != nil {
			fmt.Printf("  failed %s: %v\n", file.Path, err)
			failed++
			continue
		}
		totalChunks += n
	}

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store stats: %w", err)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Documents processed: %d\n", len(files)-failed)
	if failed > 0 {
		fmt.Printf("  Documents failed:    %d\n", failed)
	}
	fmt.Printf("  Chunks written:      %d\n", totalChunks)
	fmt.Printf("  Store totals:        %d docs, %d chunks\n", stats.TotalDocs, stats.TotalChunks)
	fmt.Printf("\nStore at: %s\n", config.StoreDBPath(GetRootDir()))
	return nil
}
