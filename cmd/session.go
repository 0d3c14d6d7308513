package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/pages"
	"github.com/s0up4200/reelpick/paginate"
)

var password string

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in to the recommendation service",
	Long: `Sign in with a username and password. The session is kept on disk
until you log out, so later commands run as the same user.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions.Logout()
		fmt.Println("✓ Logged out")
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := sessions.Require()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) [%s]\n", current.DisplayName(), current.Username, current.Role)
		fmt.Printf("Home: %s\n", guard.LandingFor(current.Role))
		return nil
	},
}

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open <route>",
	Short: "Open a page by route, following redirects",
	Long: `Open a page the way the web client routes do. Signed-out users are sent
to the login page and users without the required role to their home page.

Routes: /viewer/movies, /viewer/recommendations, /admin/history, /admin/trends`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(openCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	username := ""
	if len(args) == 1 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, _ := reader.ReadString('\n')
		username = strings.TrimSpace(line)
	}

	if password == "" {
		fmt.Print("Password: ")
		line, _ := reader.ReadString('\n')
		password = strings.TrimRight(line, "\r\n")
	}

	current, err := sessions.Login(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("login failed: %s", describeError(err))
	}

	fmt.Printf("✓ Welcome, %s\n", current.DisplayName())
	fmt.Printf("Home: %s\n", guard.LandingFor(current.Role))
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	requested := guard.Normalize(args[0])
	decision := routes.Check(requested)

	if decision.Redirected(requested) {
		fmt.Printf("→ %s redirected to %s (%s)\n", requested, decision.Route, decision.Outcome)
	}
	if decision.Route == guard.RouteLogin {
		fmt.Println("Sign in with 'reelpick login'")
		return nil
	}

	current, err := sessions.Require()
	if err != nil {
		return err
	}

	page, err := pages.ForRoute(decision.Route, client, current, pageOptions())
	if err != nil {
		return err
	}
	defer page.Close()

	ctx := cmd.Context()
	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %s", decision.Route, describeError(err))
	}

	switch p := page.(type) {
	case *pages.MoviesPage:
		if movie, ok := firstOf(p.Hot()); ok {
			fmt.Print(formatter.FormatSlide(movie, 0, len(p.Hot())))
		}
		fmt.Print(formatter.FormatMovieList("All Movies", p.Snapshot().Items, p.WatchedSet()))
		printMore(p.Snapshot())
	case *pages.RecommendationsPage:
		fmt.Print(formatter.FormatMovieList("Recommended for You", p.Snapshot().Items, nil))
		printMore(p.Snapshot())
	case *pages.AdminPage:
		if decision.Route == guard.RouteAdminTrends {
			return printTrends(ctx, p)
		}
		return printHistory(ctx, p)
	}
	return nil
}

func firstOf[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[0], true
}

func printMore[T any](snap paginate.Snapshot[T]) {
	if snap.HasMore {
		fmt.Printf("… %d loaded, more available (use --pages or --all)\n", len(snap.Items))
	}
}
