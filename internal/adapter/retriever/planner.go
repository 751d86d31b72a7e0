// Package retriever turns one user query into a ranked,
// budget-constrained context: fan-out planning, concurrent candidate
// aggregation, and relevance ranking with budget selection.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookwise/internal/domain"
	"bookwise/internal/port"
)

const reformulatePromptTemplate = `I need to search for information to answer this question:
"%s"
%s
To get the best results, please generate %d different search queries that would help me find relevant information.
These queries should:
- Cover different aspects of the original question
- Use different keywords or phrasings
- Be specific and clear
- Capture important concepts from the original question
- Match the project context provided (if any)

Return only the %d search queries, one per line, without numbering or additional text.`

const synthesisPromptTemplate = `I need to search for information to synthesize multiple sources about:
"%s"
%s
Generate a search query that would help me find:
- Overviews of the topic
- Comparative information
- Meta-analyses or literature reviews
- Different perspectives on the topic

Return only the search query, without any additional text.`

// Planner expands one user query into several reformulated search
// queries plus a synthesis query biased toward overview material.
// Generator failure never blocks retrieval: the plan degrades to the
// original query alone.
type Planner struct {
	generator  port.Generator
	numQueries int
	logger     *slog.Logger
}

// NewPlanner creates a Planner producing numQueries fan-out queries
// (the original included). numQueries below 1 falls back to 3.
func NewPlanner(generator port.Generator, numQueries int, logger *slog.Logger) *Planner {
	if numQueries < 1 {
		numQueries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		generator:  generator,
		numQueries: numQueries,
		logger:     logger.With("component", "planner"),
	}
}

// Plan produces the fan-out for query. projectInfo, when non-empty, is
// handed to the generator to contextualize the reformulations.
func (p *Planner) Plan(ctx context.Context, query, projectInfo string) domain.QueryPlan {
	return domain.QueryPlan{
		Original:  query,
		Queries:   p.reformulate(ctx, query, projectInfo),
		Synthesis: p.synthesisQuery(ctx, query, projectInfo),
	}
}

func (p *Planner) reformulate(ctx context.Context, query, projectInfo string) []string {
	if p.generator == nil || p.numQueries <= 1 {
		return []string{query}
	}

	prompt := fmt.Sprintf(reformulatePromptTemplate,
		query, projectContext(projectInfo), p.numQueries-1, p.numQueries-1)

	response, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("query reformulation failed, using original query", "error", err)
		return []string{query}
	}

	queries := parseQueryLines(response, p.numQueries-1, query)

	// Malformed or short output: top up from generic reformulations
	// instead of failing the request.
	if len(queries) < p.numQueries-1 {
		for _, fallback := range genericReformulations(query) {
			if len(queries) >= p.numQueries-1 {
				break
			}
			if !containsString(queries, fallback) {
				queries = append(queries, fallback)
			}
		}
	}

	queries = append(queries, query)
	if len(queries) > p.numQueries {
		queries = queries[:p.numQueries]
	}

	p.logger.Debug("generated search queries", "count", len(queries), "original", query)
	return queries
}

func (p *Planner) synthesisQuery(ctx context.Context, query, projectInfo string) string {
	if p.generator == nil {
		return fallbackSynthesisQuery(query)
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, query, projectContext(projectInfo))

	response, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("synthesis query generation failed, using fallback", "error", err)
		return fallbackSynthesisQuery(query)
	}

	synthesis := strings.TrimSpace(firstLine(response))
	if len(synthesis) < 10 {
		return fallbackSynthesisQuery(query)
	}
	return synthesis
}

// parseQueryLines extracts up to max distinct queries from generator
// output, one per line, tolerating numbering and bullet prefixes.
func parseQueryLines(response string, max int, original string) []string {
	var queries []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line == "" || line == original {
			continue
		}
		if containsString(queries, line) {
			continue
		}
		queries = append(queries, line)
		if len(queries) >= max {
			break
		}
	}
	return queries
}

// genericReformulations is the built-in fallback when the generator
// returns too few usable queries.
func genericReformulations(query string) []string {
	return []string{
		query + " overview",
		query + " key concepts",
		query + " explained",
	}
}

func fallbackSynthesisQuery(query string) string {
	return fmt.Sprintf(`(review OR meta-analysis OR "systematic review") AND (%s)`, query)
}

func projectContext(projectInfo string) string {
	if projectInfo == "" {
		return ""
	}
	return "\nProject context:\n" + projectInfo + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func containsString(list []string, s string) bool {
	for _, existing := range list {
		if existing == s {
			return true
		}
	}
	return false
}
