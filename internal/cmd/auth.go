package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/output"
	"github.com/brainboard/brainboard/internal/session"
)

var (
	loginEmail         string
	loginPassword      string
	loginPasswordStdin bool

	signupFirstName  string
	signupLastName   string
	signupPhone      string
	signupNewsletter bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, loginPassword, loginPasswordStdin)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			profile, err := client.Login(ctx, loginEmail, password)
			if err != nil {
				return err
			}
			return writeSignedIn(ctx, cmd, client, profile)
		})
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, loginPassword, loginPasswordStdin)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			profile, err := client.Signup(ctx, core.SignupData{
				FirstName:  signupFirstName,
				LastName:   signupLastName,
				Email:      loginEmail,
				Password:   password,
				Phone:      signupPhone,
				Newsletter: signupNewsletter,
			})
			if err != nil {
				return err
			}
			return writeSignedIn(ctx, cmd, client, profile)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			client.Logout(ctx)
			return writeOutput(cmd, output.Message{Text: "Logged out"})
		})
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or refresh the stored session",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			info, err := client.Session(ctx)
			if err != nil {
				return err
			}
			return writeOutput(cmd, info)
		})
	},
}

var sessionRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *session.Client) error {
			ok, err := client.RefreshAccessToken(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return session.ErrUnauthorized
			}
			info, err := client.Session(ctx)
			if err != nil {
				return err
			}
			return writeOutput(cmd, info)
		})
	},
}

// writeSignedIn prints the returned profile, fetching it when the server
// left it out of the token response.
func writeSignedIn(ctx context.Context, cmd *cobra.Command, client *session.Client, profile *core.Profile) error {
	if profile == nil {
		fetched, err := client.GetProfile(ctx)
		if err != nil {
			observability.Logger().Warn("Signed in but could not load profile", zap.Error(err))
			return writeOutput(cmd, output.Message{Text: "Signed in"})
		}
		profile = &fetched
	}
	observability.Logger().Info("Signed in", zap.String("user", profile.DisplayName()))
	return writeOutput(cmd, profile)
}

// readPassword takes the password from the flag or, with fromStdin, from the
// first line of standard input.
func readPassword(cmd *cobra.Command, flagValue string, fromStdin bool) (string, error) {
	if fromStdin {
		if flagValue != "" {
			return "", errors.New("--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if flagValue == "" {
		return "", errors.New("a password is required (--password or --password-stdin)")
	}
	return flagValue, nil
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	cmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	cmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
}

func init() {
	addCredentialFlags(loginCmd)
	addCredentialFlags(signupCmd)
	signupCmd.Flags().StringVar(&signupFirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupLastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupPhone, "phone", "", "Phone number (optional)")
	signupCmd.Flags().BoolVar(&signupNewsletter, "newsletter", false, "Subscribe to the newsletter")
	_ = signupCmd.MarkFlagRequired("first-name")
	_ = signupCmd.MarkFlagRequired("last-name")

	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionRefreshCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionCmd)
}
