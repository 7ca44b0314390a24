package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/JustynLim/SoC-SMS/pkg/apiclient"
)

var (
	Version = "dev"

	baseURL     string
	sessionPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "smsctl",
	Short: "Command-line client for the student management system",
	Long: `smsctl talks to a running smsd instance: first-boot setup, 2FA login,
and read access to students, courses and the dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", defaultURL(), "smsd API URL")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", defaultSessionPath(), "session file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newSetupCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newStudentsCmd(),
		newCoursesCmd(),
		newDashboardCmd(),
		newVersionCmd(),
	)
}

func defaultURL() string {
	if v := os.Getenv("SMS_URL"); v != "" {
		return v
	}
	return "http://127.0.0.1:5001"
}

func defaultSessionPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".sms", "session.json")
	}
	return "session.json"
}

func cliLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// newAPIClient builds the client plus its file-backed session store.
func newAPIClient() (*apiclient.Client, *apiclient.SessionStore, error) {
	sessions, err := apiclient.NewSessionStore(sessionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session file: %w", err)
	}
	client, err := apiclient.New(baseURL, sessions, cliLogger())
	if err != nil {
		return nil, nil, err
	}
	client.OnSessionExpired = func() {
		fmt.Fprintln(os.Stderr, "Session expired. Run `smsctl login` again.")
	}
	return client, sessions, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
