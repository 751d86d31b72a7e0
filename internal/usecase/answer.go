package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookwise/internal/adapter/retriever"
	"bookwise/internal/domain"
	"bookwise/internal/port"
)

const noContextAnswer = "I don't have enough information in my knowledge base to answer this question accurately. Please try a different question or consider ingesting relevant documents."

const answerPromptTemplate = `### Task:
Answer the user's query using ONLY the provided context. The context contains relevant information from ingested sources.
%s
If the provided context contains information relevant to the query, provide a concise, helpful response based on that information.

If the context does NOT contain sufficient information to answer the query, say so plainly and suggest ingesting more relevant documents.

### Query:
%s

### Context:
%s`

// AnswerOptions scope one question.
type AnswerOptions struct {
	ProjectID           string
	ProjectInfo         string
	SelectedDocumentIDs []string
	TopK                int
	ContextTokens       int
}

// Answerer runs the retrieval side of the pipeline for one question
// and asks the generator to answer from the assembled context.
type Answerer struct {
	planner    *retriever.Planner
	aggregator *retriever.Aggregator
	builder    *retriever.ContextBuilder
	generator  port.Generator
	logger     *slog.Logger
}

func NewAnswerer(
	planner *retriever.Planner,
	aggregator *retriever.Aggregator,
	builder *retriever.ContextBuilder,
	generator port.Generator,
	logger *slog.Logger,
) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		planner:    planner,
		aggregator: aggregator,
		builder:    builder,
		generator:  generator,
		logger:     logger.With("component", "answerer"),
	}
}

// Answer plans queries, aggregates candidates, assembles a context
// under the token budget, and generates an answer. When generation is
// unavailable or returns nothing, the assembled passages themselves
// become the answer so retrieval results are never lost.
func (a *Answerer) Answer(ctx context.Context, query string, opts AnswerOptions) (domain.Answer, error) {
	plan := a.planner.Plan(ctx, query, opts.ProjectInfo)

	candidates, err := a.aggregator.Aggregate(ctx, plan, retriever.AggregateOptions{
		TopK:                opts.TopK,
		ProjectID:           opts.ProjectID,
		SelectedDocumentIDs: opts.SelectedDocumentIDs,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}

	assembled := a.builder.Build(ctx, query, candidates, opts.ContextTokens)
	if len(strings.TrimSpace(assembled.Text)) < 20 {
		a.logger.Warn("no usable context assembled", "query", query)
		return domain.Answer{Text: noContextAnswer}, nil
	}

	prompt := fmt.Sprintf(answerPromptTemplate, projectSection(opts.ProjectInfo), query, assembled.Text)

	text, genErr := a.generator.Generate(ctx, prompt)
	text = strings.TrimSpace(text)
	if genErr != nil || text == "" {
		if genErr != nil {
			a.logger.Warn("generation failed, returning passages", "error", genErr)
		}
		return domain.Answer{
			Text:       passagesAnswer(query, assembled.Text),
			ChunksUsed: assembled.ChunksUsed,
		}, nil
	}

	a.logger.Info("answer generated",
		"query", query,
		"chunks_used", assembled.ChunksUsed,
		"tokens_used", assembled.TokensUsed,
		"model", a.generator.ModelName())

	return domain.Answer{Text: text, ChunksUsed: assembled.ChunksUsed}, nil
}

// Retrieve exposes the ranked, budget-selected context without
// generation, for inspection.
func (a *Answerer) Retrieve(ctx context.Context, query string, opts AnswerOptions) (domain.AssembledContext, error) {
	plan := a.planner.Plan(ctx, query, opts.ProjectInfo)

	candidates, err := a.aggregator.Aggregate(ctx, plan, retriever.AggregateOptions{
		TopK:                opts.TopK,
		ProjectID:           opts.ProjectID,
		SelectedDocumentIDs: opts.SelectedDocumentIDs,
	})
	if err != nil {
		return domain.AssembledContext{}, fmt.Errorf("retrieval failed: %w", err)
	}

	return a.builder.Build(ctx, query, candidates, opts.ContextTokens), nil
}

func projectSection(projectInfo string) string {
	if projectInfo == "" {
		return ""
	}
	return fmt.Sprintf("\n### Project Information:\n%s\n\nUse this project information to tailor your response.\n", projectInfo)
}

func passagesAnswer(query, contextText string) string {
	return fmt.Sprintf("Here are the most relevant passages for %q:\n\n%s", query, contextText)
}
