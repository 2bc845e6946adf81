package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var (
	requestLanguage string
	requestFile     string
	requestTrace    bool
	inlineLine      int
	inlineColumn    int
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the assistant a question",
	Long: `Send a chat message to the best available model.
The message is read from stdin when no argument is given.
With --file, the file's content is sent as the selected code.`,
	RunE: runChat,
}

var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Continue a block of code",
	Long: `Ask a completion model to continue code.
The prompt is read from --file, or stdin when no argument is given.`,
	RunE: runComplete,
}

var inlineCmd = &cobra.Command{
	Use:   "inline",
	Short: "Suggest a short completion at a cursor position",
	Long: `Ask a fast model for an inline suggestion at --line and --column (zero-based).
The buffer is read from --file, or stdin. Prints nothing when no suggestion is available.`,
	Args: cobra.NoArgs,
	RunE: runInline,
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, completeCmd, inlineCmd} {
		c.Flags().StringVarP(&requestLanguage, "language", "l", "", "language of the code")
		c.Flags().StringVarP(&requestFile, "file", "f", "", "file providing code context")
		c.Flags().BoolVar(&requestTrace, "trace", false, "print the transactions recorded for this request")
		rootCmd.AddCommand(c)
	}
	inlineCmd.Flags().IntVar(&inlineLine, "line", 0, "cursor line (zero-based)")
	inlineCmd.Flags().IntVar(&inlineColumn, "column", 0, "cursor column (zero-based)")
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireDispatcher(); err != nil {
		return err
	}

	message, err := argsOrStdin(cmd, args)
	if err != nil {
		return err
	}
	if message == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	rc := domain.RequestContext{Language: requestLanguage, FilePath: requestFile}
	if requestFile != "" {
		selection, err := os.ReadFile(requestFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", requestFile, err)
		}
		rc.Selection = string(selection)
	}

	before := len(dispatcher.Transactions())
	cmd.Println(dispatcher.Chat(cmd.Context(), message, rc).Text)
	printTrace(cmd, before)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	if err := requireDispatcher(); err != nil {
		return err
	}

	prompt, err := codeInput(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}

	rc := domain.RequestContext{Language: requestLanguage, FilePath: requestFile}
	before := len(dispatcher.Transactions())
	cmd.Println(dispatcher.Complete(cmd.Context(), prompt, rc).Text)
	printTrace(cmd, before)
	return nil
}

func runInline(cmd *cobra.Command, _ []string) error {
	if err := requireDispatcher(); err != nil {
		return err
	}
	if inlineLine < 0 || inlineColumn < 0 {
		return fmt.Errorf("%w: cursor must not be negative", domain.ErrInvalidInput)
	}

	code, err := codeInput(cmd, nil)
	if err != nil {
		return err
	}

	cursor := domain.CursorPosition{Line: inlineLine, Column: inlineColumn}
	before := len(dispatcher.Transactions())
	if suggestion := dispatcher.InlineComplete(cmd.Context(), code, cursor, requestLanguage).Text; suggestion != "" {
		cmd.Println(suggestion)
	}
	printTrace(cmd, before)
	return nil
}

// codeInput reads code from the args, --file, or stdin, in that order.
func codeInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if requestFile != "" {
		data, err := os.ReadFile(requestFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", requestFile, err)
		}
		return string(data), nil
	}
	return readAll(cmd)
}

func argsOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	text, err := readAll(cmd)
	return strings.TrimSpace(text), err
}

func readAll(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// printTrace prints transactions appended since index before when --trace is set.
func printTrace(cmd *cobra.Command, before int) {
	if !requestTrace {
		return
	}
	txs := dispatcher.Transactions()
	if before > len(txs) {
		before = 0
	}
	st := newStyles(cmd.ErrOrStderr())
	for _, tx := range txs[before:] {
		printTransaction(cmd, st, tx)
	}
}

func printTransaction(cmd *cobra.Command, st *styles, tx domain.Transaction) {
	line := fmt.Sprintf("[%s] %-8s", tx.Timestamp.Format("15:04:05"), tx.Kind)
	if tx.ModelID != "" {
		line += " " + tx.ModelID
	}
	if tx.Operation != "" {
		line += " " + tx.Operation
	}
	switch {
	case tx.Error != "":
		line += ": " + tx.Error
	case tx.Message != "":
		line += ": " + tx.Message
	}
	if tx.Metadata.LatencyMs > 0 {
		line += fmt.Sprintf(" (%dms)", tx.Metadata.LatencyMs)
	}
	cmd.PrintErrln(st.transaction(tx.Kind).Render(line))
}
