package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bookwise/config"
	"bookwise/internal/adapter/analyzer"
	"bookwise/internal/adapter/retriever"
	"bookwise/internal/adapter/store"
	"bookwise/internal/usecase"
)

var (
	askQuery       string
	askProjectID   string
	askProjectInfo string
	askDocs        []string
	askTopK        int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question over the ingested documents",
	Long: `Ask a question. The query is reformulated into several search
queries, candidates from each are merged, and an answer is generated
from the passages that fit the context budget.

Examples:
  bookwise ask -q "how should sample sizes be chosen"
  bookwise ask -q "sampling" --docs handbook.pdf --top-k 10`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to answer (required)")
	askCmd.Flags().StringVarP(&askProjectID, "project", "p", "", "restrict retrieval to one project ID")
	askCmd.Flags().StringVar(&askProjectInfo, "project-info", "", "project description used to steer reformulation")
	askCmd.Flags().StringSliceVar(&askDocs, "docs", nil, "restrict retrieval to these document IDs or filenames")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of candidates to retrieve (default from config)")
	askCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(askCmd)
}

func newAnswerer() (*usecase.Answerer, func() error, error) {
	cfg := GetConfig()

	st, err := store.Open(config.StoreDBPath(GetRootDir()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	logger := slog.Default()
	policy := retryPolicy(cfg)

	ans := usecase.NewAnswerer(
		retriever.NewPlanner(generator, cfg.Retrieve.NumQueries, logger),
		retriever.NewAggregator(embedder, st, policy, logger),
		retriever.NewContextBuilder(embedder, analyzer.NewTokenizer(), logger),
		generator,
		logger,
	)
	return ans, st.Close, nil
}

func answerOptions(cfg *config.Config) usecase.AnswerOptions {
	topK := askTopK
	if topK <= 0 {
		topK = cfg.Retrieve.TopK
	}
	return usecase.AnswerOptions{
		ProjectID:           askProjectID,
		ProjectInfo:         askProjectInfo,
		SelectedDocumentIDs: askDocs,
		TopK:                topK,
		ContextTokens:       cfg.Retrieve.ContextTokens,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ans, closeStore, err := newAnswerer()
	if err != nil {
		return err
	}
	defer closeStore()

	answer, err := ans.Answer(cmd.Context(), askQuery, answerOptions(GetConfig()))
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if answer.ChunksUsed > 0 {
		fmt.Printf("\nBased on %d chunks\n", answer.ChunksUsed)
	}
	return nil
}
