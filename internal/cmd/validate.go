package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainboard/brainboard/internal/output"
	"github.com/brainboard/brainboard/internal/security"
	"github.com/brainboard/brainboard/internal/session"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check input locally without contacting the API",
}

var validatePasswordCmd = &cobra.Command{
	Use:   "password [password]",
	Short: "Score a password against the strength policy",
	Long: `Score a password against the strength policy. With no argument the
password is read from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			var err error
			if password, err = readPassword(cmd, "", true); err != nil {
				return err
			}
		}

		report := security.ValidatePasswordStrength(password)
		if err := writeOutput(cmd, report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("%w: %s", session.ErrInvalidInput, report.Message())
		}
		return nil
	},
}

var validateEmailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Check the shape of an email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := strings.TrimSpace(args[0])
		if !security.ValidateEmail(address) {
			return fmt.Errorf("%w: %q is not a valid email address", session.ErrInvalidInput, address)
		}
		return writeOutput(cmd, output.Message{Text: address + " looks valid"})
	},
}

var validateTextCmd = &cobra.Command{
	Use:   "text <text>",
	Short: "Show how text is sanitized and flag injection-like patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return writeOutput(cmd, output.TextReport{
			Sanitized: security.SanitizeText(text),
			Injection: security.DetectInjectionPattern(text),
		})
	},
}

func init() {
	validateCmd.AddCommand(validatePasswordCmd)
	validateCmd.AddCommand(validateEmailCmd)
	validateCmd.AddCommand(validateTextCmd)
	rootCmd.AddCommand(validateCmd)
}
