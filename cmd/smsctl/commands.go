package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JustynLim/SoC-SMS/pkg/apiclient"
)

// ensureRoute runs the route guard the way the front-end did before rendering
// a screen, translating its redirects into CLI guidance.
func ensureRoute(ctx context.Context, client *apiclient.Client, sessions *apiclient.SessionStore, path string) error {
	guard := apiclient.NewGuard(client, sessions, cliLogger())
	switch guard.Evaluate(ctx, path).State {
	case apiclient.GuardForceSetup:
		return fmt.Errorf("setup required: run `smsctl setup` first")
	case apiclient.GuardForceLogin:
		return fmt.Errorf("not logged in: run `smsctl login` first")
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the smsctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("smsctl", Version)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server setup state and the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			status, err := client.CheckSetup(cmd.Context())
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			fmt.Printf("Server:        %s\n", baseURL)
			fmt.Printf("Setup needed:  %v\n", status.ShouldSetup || status.Needs2FASetup)
			fmt.Printf("Admin exists:  %v\n", status.AdminExists)
			fmt.Printf("Users:         %d\n", status.UserCount)
			if sess := sessions.Current(); sess.AccessToken != "" {
				fmt.Printf("Logged in as:  %s (since %s)\n", sess.Email, sess.IssuedAt.Format("2006-01-02 15:04"))
			} else {
				fmt.Println("Logged in as:  (not logged in)")
			}
			guard := apiclient.NewGuard(client, sessions, cliLogger())
			switch guard.Evaluate(cmd.Context(), "/home").State {
			case apiclient.GuardForceSetup:
				fmt.Println("Next step:     smsctl setup")
			case apiclient.GuardForceLogin:
				fmt.Println("Next step:     smsctl login")
			default:
				fmt.Println("Next step:     ready")
			}
			return nil
		},
	}
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Run the first-boot admin setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// The guard only renders the wizard while setup is pending.
			guard := apiclient.NewGuard(client, sessions, cliLogger())
			if d := guard.Evaluate(ctx, "/setup"); d.State != apiclient.GuardAllow {
				return fmt.Errorf("setup is already completed")
			}

			email := prompt("Admin email: ")
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}

			enrollment, err := client.BeginSetup(ctx, email, password, confirm)
			if err != nil {
				return err
			}
			fmt.Println("\nAdd this account to your authenticator app.")
			fmt.Printf("Manual entry code: %s\n\n", enrollment.ManualCode)

			code := promptCode()
			if err := client.CompleteSetup(ctx, email, password, confirm, code, enrollment.Secret); err != nil {
				return err
			}
			fmt.Println("Setup complete. You are logged in.")
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with email, password and a 2FA code",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			guard := apiclient.NewGuard(client, sessions, cliLogger())
			if d := guard.Evaluate(ctx, "/login"); d.State == apiclient.GuardForceSetup {
				return fmt.Errorf("setup required: run `smsctl setup` first")
			}

			flow := apiclient.NewLoginFlow(client)
			email := prompt("Email: ")
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			if err := flow.SubmitCredentials(ctx, email, password); err != nil {
				return fmt.Errorf("%s", flow.LastError())
			}

			code := promptCode()
			if err := flow.Submit2FA(ctx, code); err != nil {
				return fmt.Errorf("%s", flow.LastError())
			}
			fmt.Println("Logged in as", email)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newStudentsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List students",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := ensureRoute(cmd.Context(), client, sessions, "/students"); err != nil {
				return err
			}
			var students []map[string]any
			if err := client.Get(cmd.Context(), "/api/students", &students); err != nil {
				return err
			}
			if asJSON {
				return printJSON(students)
			}
			for _, s := range students {
				fmt.Printf("%-12v %-30v %v\n", s["MATRIC_NO"], s["STUDENT_NAME"], s["STATUS"])
			}
			fmt.Printf("%d student(s)\n", len(students))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func newCoursesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List the course structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := ensureRoute(cmd.Context(), client, sessions, "/courses"); err != nil {
				return err
			}
			var courses []map[string]any
			if err := client.Get(cmd.Context(), "/api/course-structure", &courses); err != nil {
				return err
			}
			if asJSON {
				return printJSON(courses)
			}
			for _, c := range courses {
				fmt.Printf("%-12v %-40v %v\n", c["COURSE_CODE"], c["MODULE"], c["COURSE_VERSION"])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sessions, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := ensureRoute(cmd.Context(), client, sessions, "/dashboard"); err != nil {
				return err
			}
			var summary struct {
				TotalStudents   int            `json:"totalStudents"`
				StatusBreakdown map[string]int `json:"statusBreakdown"`
				GraduatedCount  int            `json:"graduatedCount"`
				Ungraduated     int            `json:"ungraduatedCount"`
			}
			if err := client.Get(cmd.Context(), "/api/dashboard/summary", &summary); err != nil {
				return err
			}
			fmt.Printf("Total students: %d\n", summary.TotalStudents)
			for status, n := range summary.StatusBreakdown {
				fmt.Printf("  %-12s %d\n", status, n)
			}
			fmt.Printf("Graduated:      %d\n", summary.GraduatedCount)
			fmt.Printf("Not graduated:  %d\n", summary.Ungraduated)
			return nil
		},
	}
}

func prompt(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// promptCode collects the 6-digit TOTP code through the same cell model the
// front-end used: digits only, pastes of a full code accepted.
func promptCode() string {
	var code string
	input := apiclient.NewCodeInput(func(c string) { code = c })
	for code == "" {
		raw := prompt("2FA code: ")
		input.Clear()
		if len(raw) == 6 {
			input.Paste(raw)
		} else {
			for _, r := range raw {
				input.TypeDigit(r)
			}
		}
		if code == "" && input.Complete() {
			input.Submit()
		}
	}
	return code
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
