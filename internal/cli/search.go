package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the retrieval pipeline for one query",
	Long: `Embed the query, fetch nearest neighbors and rerank them.

Examples:
  ragchat search -q "what is MONAI"
  ragchat search -q "omniverse connectors" --top-k 20 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of neighbors to fetch (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Retrieval.SearchTopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	res, err := a.search.Search(cmd.Context(), searchQuery, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return chiTransport.EncodeSearchResult(out, &res)
	}
	printSearchResult(out, &res)
	return nil
}

func printSearchResult(w io.Writer, res *result.Result) {
	all := res.AllVectorResults()
	if len(all) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "Found %d neighbors (index latency %.3fs)\n\n", len(all), res.Latency())

	fmt.Fprintln(w, "Vector results:")
	printMatches(w, res.VectorResults())
	fmt.Fprintln(w, "\nReranked results:")
	printMatches(w, res.RerankedResults())
}

func printMatches(w io.Writer, matches []match.Match) {
	for i := range matches {
		m := &matches[i]
		score := fmt.Sprintf("score %.4f", m.Score())
		if rs, ok := m.RerankScore(); ok {
			score += fmt.Sprintf(", rerank %.4f", rs)
		}
		fmt.Fprintf(w, "  [%d] %s (%s)\n      %s\n", i+1, m.Title(), score, m.Source())
	}
}
