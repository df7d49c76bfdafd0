package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-tagger/internal/api"
)

// newClassifyCmd creates the 'classify' subcommand.
func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>",
		Short: "Classifies a single URL and prints the JSON result",
		Long: `Runs the fetch, extract and classify pipeline once for the given URL.
The response body the HTTP service would return is printed to stdout. On
failure the error body is printed and the command exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: runClassifyCommand,
	}
}

func runClassifyCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		_ = appInstance.Close(context.WithoutCancel(cmd.Context()))
	}()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	result, err := appInstance.Service().Classify(cmd.Context(), args[0])
	if err != nil {
		status, body, known := api.ErrorResponse(err)
		if !known {
			appInstance.Logger().Error("classify failed", zap.Error(err))
		}
		if encErr := enc.Encode(body); encErr != nil {
			return fmt.Errorf("write error body: %w", encErr)
		}
		return fmt.Errorf("classify %s: status %d: %w", args[0], status, err)
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
