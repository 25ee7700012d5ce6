package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/service"
)

var compressCmd = &cobra.Command{
	Use:   "compress <applicant_id>",
	Short: "Compress an applicant into one JSON record, screen it and ask the LLM for an analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  compress,
}

func init() {
	compressCmd.Flags().Bool("refresh-analysis", false, "evict the cached LLM analysis for this applicant and ask the model again")

	rootCmd.AddCommand(compressCmd)
}

func compress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applicantID := args[0]

	log, err := newLogger("compress", applicantID)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting the applicant-screener", zap.String("version", version))

	rt, err := newRuntime(log)
	if err != nil {
		log.Error("preparing compress", zap.Error(err))
		return err
	}

	refresh, _ := cmd.Flags().GetBool("refresh-analysis")

	analyzer, cleanup, err := rt.analyzer(ctx, refresh)
	if err != nil {
		log.Error("preparing llm analyzer", zap.Error(err))
		return err
	}
	defer cleanup()

	svc := service.NewCompressionService(rt.repo, rt.screener(), analyzer, log)

	result, err := svc.Compress(ctx, applicantID)
	if err != nil {
		log.Error("error compressing applicant", zap.Error(err))
		return err
	}

	fields := []zap.Field{
		zap.String("shortlist_status", result.ShortlistStatus),
		zap.String("reason", result.Reason),
		zap.String("record_id", result.RecordID),
		zap.Bool("llm_failed", result.LLMFailed),
	}
	if result.LLMScore != nil {
		fields = append(fields, zap.Int("llm_score", *result.LLMScore))
	}

	log.Info("compressed applicant", fields...)

	return nil
}
