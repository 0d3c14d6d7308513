package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/pages"
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all accounts (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := authorize(guard.RouteAdminHistory); err != nil {
			return err
		}
		users, err := client.GetUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load users: %s", describeError(err))
		}
		fmt.Print(formatter.FormatUsers(users))
		return nil
	},
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [username]",
	Short: "Show a viewer's watch history (admin)",
	Long:  `Show the watch history of a viewer. Without a username the first viewer is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openAdminPage(cmd.Context(), guard.RouteAdminHistory, args)
		if err != nil {
			return err
		}
		defer page.Close()
		return printHistory(cmd.Context(), page)
	},
}

// trendsCmd represents the trends command
var trendsCmd = &cobra.Command{
	Use:   "trends [username]",
	Short: "Show a viewer's genre preferences (admin)",
	Long:  `Chart how many watched movies of a viewer carry each genre. Without a username the first viewer is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openAdminPage(cmd.Context(), guard.RouteAdminTrends, args)
		if err != nil {
			return err
		}
		defer page.Close()
		return printTrends(cmd.Context(), page)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(trendsCmd)
}

func openAdminPage(ctx context.Context, route string, args []string) (*pages.AdminPage, error) {
	current, err := authorize(route)
	if err != nil {
		return nil, err
	}

	page, err := pages.NewAdminPage(client, current, logger)
	if err != nil {
		return nil, err
	}
	if err := page.Mount(ctx); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to load users: %s", describeError(err))
	}

	if len(args) == 1 {
		if err := page.SelectByName(args[0]); err != nil {
			page.Close()
			return nil, fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return page, nil
}

func viewerLabel(page *pages.AdminPage) string {
	selected := page.Selected()
	for _, v := range page.Viewers() {
		if v.ID == selected {
			return fmt.Sprintf("%s (%s)", v.GetDisplayName(), v.Username)
		}
	}
	return ""
}

func printHistory(ctx context.Context, page *pages.AdminPage) error {
	if page.Selected() == 0 {
		fmt.Println("No viewers found")
		return nil
	}

	history, err := page.LoadHistory(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Showing empty watch history")
	}
	fmt.Printf("Watch history of %s\n", viewerLabel(page))
	fmt.Print(formatter.FormatHistory(history))
	return nil
}

func printTrends(ctx context.Context, page *pages.AdminPage) error {
	if page.Selected() == 0 {
		fmt.Println("No viewers found")
		return nil
	}

	trends, err := page.LoadTrends(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Showing empty genre trends")
	}
	fmt.Printf("Genre trends of %s\n", viewerLabel(page))
	fmt.Print(formatter.FormatGenreChart(preferencesOf(trends)))
	return nil
}

func preferencesOf(trends []pages.Trend) []api.GenrePreference {
	prefs := make([]api.GenrePreference, len(trends))
	for i, t := range trends {
		prefs[i] = t.GenrePreference
	}
	return prefs
}
