package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
)

var (
	chatMessage string
	chatTopK    int
	chatJSON    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Answer one message from retrieved context",
	Long: `Retrieve context for the message and print both answers: the precise one
grounded on vector results and the enthusiastic one grounded on reranked results.

Examples:
  ragchat chat -m "what is MONAI"
  ragchat chat -m "what is MONAI" -k 8 --json`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "user message (required)")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of neighbors to fetch (default from config)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output as JSON")
	_ = chatCmd.MarkFlagRequired("message")
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Retrieval.ChatTopK
	if chatTopK > 0 {
		topK = chatTopK
	}

	reply, err := a.chat.Chat(cmd.Context(), chatMessage, topK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if chatJSON {
		return chiTransport.EncodeChatReply(out, &reply)
	}

	fmt.Fprintf(out, "Vector answer:\n%s\n\n", reply.VectorResponse)
	fmt.Fprintf(out, "Reranked answer:\n%s\n\nSources:\n", reply.RerankedResponse)
	printMatches(out, reply.RerankedResults)
	return nil
}
