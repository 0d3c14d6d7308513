package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/pages"
	"github.com/s0up4200/reelpick/ui"
)

// recommendationsCmd represents the recommendations command
var recommendationsCmd = &cobra.Command{
	Use:     "recommendations",
	Aliases: []string{"recs"},
	Short:   "Show movies recommended for you",
	Args:    cobra.NoArgs,
	RunE:    runRecommendations,
}

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate <movie-id> <1-5>",
	Short: "Rate a movie from 1 to 5 stars",
	Args:  cobra.ExactArgs(2),
	RunE:  runRate,
}

func init() {
	recommendationsCmd.Flags().IntVar(&pageCount, "pages", 1, "number of pages to load")
	recommendationsCmd.Flags().BoolVar(&loadAll, "all", false, "load every page")

	rootCmd.AddCommand(recommendationsCmd)
	rootCmd.AddCommand(rateCmd)
}

func newRecommendationsPage() (*pages.RecommendationsPage, error) {
	current, err := authorize(guard.RouteViewerRecommendations)
	if err != nil {
		return nil, err
	}
	return pages.NewRecommendationsPage(client, current, pages.RecommendationsOptions{
		Limit:  cfg.Paging.RecommendationsLimit,
		Logger: logger,
	})
}

func runRecommendations(cmd *cobra.Command, args []string) error {
	page, err := newRecommendationsPage()
	if err != nil {
		return err
	}
	defer page.Close()

	ctx := cmd.Context()
	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load recommendations: %s", describeError(err))
	}
	if err := loadRemaining(ctx, page.List()); err != nil {
		logger.Warn().Err(err).Msg("Stopped loading recommendations")
	}

	snap := page.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Println("No recommendations yet. Watch a few movies first.")
		return nil
	}
	fmt.Print(formatter.FormatMovieList("Recommended for You", snap.Items, nil))
	printMore(snap)
	return nil
}

func runRate(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[1])
	if err != nil || value < 1 || value > ui.DefaultMaxStars {
		return fmt.Errorf("invalid rating: %s (must be 1-%d)", args[1], ui.DefaultMaxStars)
	}

	page, err := newRecommendationsPage()
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.Rate(cmd.Context(), id, value); err != nil {
		return fmt.Errorf("failed to rate #%d: %s", id, describeError(err))
	}

	stars := ui.NewStarRating(value, true, nil)
	fmt.Printf("✓ #%d rated. %s\n", id, stars.Render())
	return nil
}
