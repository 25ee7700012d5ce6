package cmd

import (
	"errors"
	"os"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/service"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("decompress aborted by user")

var stdinIsTerminal = func() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

var decompressCmd = &cobra.Command{
	Use:   "decompress <applicant_id>",
	Short: "Rebuild the detailed applicant records from the stored compressed JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  decompress,
}

func init() {
	rootCmd.AddCommand(decompressCmd)

	decompressCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before replacing records (never asked without a terminal)")
}

func decompress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applicantID := args[0]

	log, err := newLogger("decompress", applicantID)
	if err != nil {
		return err
	}
	defer log.Sync()

	rt, err := newRuntime(log)
	if err != nil {
		log.Error("preparing decompress", zap.Error(err))
		return err
	}

	if needsConfirmation(cmd) {
		if err := confirm("Replace work experience and salary records of applicant " + applicantID + "?"); err != nil {
			log.Info("exiting", zap.Error(err))
			return err
		}
	}

	result, err := service.NewDecompressionService(rt.repo, log).Decompress(ctx, applicantID)
	if err != nil {
		log.Error("error decompressing applicant", zap.Error(err))
		return err
	}

	fields := []zap.Field{
		zap.String("personal_id", result.PersonalID),
		zap.Int("experience_entries", len(result.Experience)),
	}
	if result.Personal.Name != nil {
		fields = append(fields, zap.String("name", *result.Personal.Name))
	}
	if result.Personal.Email != nil {
		fields = append(fields, zap.String("email", *result.Personal.Email))
	}

	log.Info("successfully decompressed applicant", fields...)

	return nil
}

// needsConfirmation reports whether the user should be asked before records are replaced.
func needsConfirmation(cmd *cobra.Command) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return false
	}

	return stdinIsTerminal()
}

func confirm(label string) error {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errAborted
	}

	return nil
}
