package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/filter"
	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/pages"
	"github.com/s0up4200/reelpick/paginate"
	"github.com/s0up4200/reelpick/ui"
)

const (
	// scrollDebounce limits how often Enter can request another page
	scrollDebounce = 250 * time.Millisecond
	pollInterval   = 10 * time.Millisecond
)

var (
	interactive   bool
	slideshow     bool
	presetSummary bool
)

// moviesCmd represents the movies command
var moviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "Browse the movie catalog",
	Long: `List the movie catalog, a page at a time. Movies you have watched are
marked. Use --interactive to load more pages by pressing Enter, or
--presets to count how many loaded movies each configured preset matches.

Filter expressions can reference: Title, Year, Rating, Genres, Description,
Watched, MyRating, Rated, and helpers such as hasGenre("Drama").`,
	Args: cobra.NoArgs,
	RunE: runMovies,
}

// hotCmd represents the hot command
var hotCmd = &cobra.Command{
	Use:   "hot",
	Short: "Show the hot movies",
	Args:  cobra.NoArgs,
	RunE:  runHot,
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <movie-id>",
	Short: "Show the details of a movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <movie-id>",
	Short: "Mark a movie as watched",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	moviesCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	moviesCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	moviesCmd.Flags().IntVar(&pageCount, "pages", 1, "number of pages to load")
	moviesCmd.Flags().BoolVar(&loadAll, "all", false, "load every page")
	moviesCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "press Enter to load more")
	moviesCmd.Flags().BoolVar(&presetSummary, "presets", false, "count the matches of every configured preset")
	moviesCmd.MarkFlagsMutuallyExclusive("all", "interactive")
	moviesCmd.MarkFlagsMutuallyExclusive("filter", "preset", "presets")
	moviesCmd.MarkFlagsMutuallyExclusive("presets", "interactive")

	hotCmd.Flags().BoolVar(&slideshow, "slideshow", false, "cycle through the hot movies until interrupted")

	rootCmd.AddCommand(moviesCmd)
	rootCmd.AddCommand(hotCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
}

func runMovies(cmd *cobra.Command, args []string) error {
	current, err := authorize(guard.RouteViewerMovies)
	if err != nil {
		return err
	}

	f, err := selectedFilter()
	if err != nil {
		return err
	}

	if interactive {
		return browseMovies(cmd.Context(), f)
	}

	page, err := pages.NewMoviesPage(client, current, pages.MoviesOptions{
		Limit:    cfg.Paging.MoviesLimit,
		HotLimit: cfg.Paging.HotLimit,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer page.Close()
	page.SetFilter(f)

	ctx := cmd.Context()
	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load movies: %s", describeError(err))
	}
	if err := loadRemaining(ctx, page.Catalog()); err != nil {
		logger.Warn().Err(err).Msg("Stopped loading movies")
	}

	if presetSummary {
		return printPresetSummary(ctx, page)
	}

	if filter.NeedsRatings(f) {
		if err := page.LoadRatings(ctx); err != nil {
			logger.Warn().Err(err).Msg("Filtering with partial ratings")
		}
	}
	printSubjects("All Movies", page.Visible())
	printMore(page.Snapshot())
	return nil
}

func printPresetSummary(ctx context.Context, page *pages.MoviesPage) error {
	manager, err := presetManager()
	if err != nil {
		return err
	}
	if filter.NeedsRatings(presetFilters(manager)...) {
		if err := page.LoadRatings(ctx); err != nil {
			logger.Warn().Err(err).Msg("Counting with partial ratings")
		}
	}

	summary, err := summarizePresets(ctx, manager, page.Visible())
	if err != nil {
		return err
	}
	fmt.Print(summary)
	printMore(page.Snapshot())
	return nil
}

// browseMovies loads a page each time Enter is pressed until the catalog is
// exhausted or the user quits
func browseMovies(ctx context.Context, f filter.Filter) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return errors.New("--interactive needs a terminal")
	}
	current, err := sessions.Require()
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		page    *pages.MoviesPage
		printed int
		ready   bool
	)
	render := func(snap paginate.Snapshot[api.Movie]) {
		mu.Lock()
		defer mu.Unlock()
		if !ready {
			return
		}
		if snap.Loading() {
			fmt.Println("Loading movies...")
			return
		}
		if len(snap.Items) > printed {
			fresh := snap.Items[printed:]
			printed = len(snap.Items)
			if filter.NeedsRatings(f) {
				if err := page.LoadRatings(ctx); err != nil {
					logger.Warn().Err(err).Msg("Filtering with partial ratings")
				}
			}
			printSubjects(fmt.Sprintf("Movies %d-%d", printed-len(fresh)+1, printed), page.Subjects(fresh))
		}
		if snap.State == paginate.Exhausted {
			fmt.Println("End of catalog")
		}
	}

	page, err = pages.NewMoviesPage(client, current, pages.MoviesOptions{
		Limit:    cfg.Paging.MoviesLimit,
		HotLimit: cfg.Paging.HotLimit,
		Logger:   logger,
		OnChange: render,
	})
	if err != nil {
		return err
	}
	defer page.Close()
	page.SetFilter(f)

	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load movies: %s", describeError(err))
	}

	mu.Lock()
	ready = true
	mu.Unlock()
	render(page.Snapshot())

	trigger := paginate.NewManualTrigger(scrollDebounce)
	defer trigger.Stop()

	driveErr := make(chan error, 1)
	go func() {
		driveErr <- paginate.Drive(ctx, page.Catalog(), trigger)
	}()

	fmt.Println("Enter: load more · w <id>: mark watched · q: quit")
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case err := <-driveErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("failed to load more movies: %s", describeError(err))
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			switch {
			case len(fields) == 0:
				if !trigger.Fire() {
					fmt.Println("Still loading...")
				}
			case fields[0] == "q":
				return nil
			case fields[0] == "w" && len(fields) == 2:
				markWatched(ctx, page, fields[1])
			default:
				fmt.Println("Enter: load more · w <id>: mark watched · q: quit")
			}
		}
	}
}

func markWatched(ctx context.Context, page *pages.MoviesPage, arg string) {
	id, err := parseMovieID(arg)
	if err != nil {
		fmt.Println(err)
		return
	}
	if page.IsWatched(id) {
		fmt.Printf("✓ #%d is already watched\n", id)
		return
	}
	if err := page.MarkWatched(ctx, id); err != nil {
		fmt.Printf("✗ Could not mark #%d as watched: %s\n", id, describeError(err))
		return
	}
	fmt.Printf("✓ Marked #%d as watched\n", id)
}

func runHot(cmd *cobra.Command, args []string) error {
	if _, err := authorize(guard.RouteViewerMovies); err != nil {
		return err
	}

	ctx := cmd.Context()
	hot, err := client.GetHotMovies(ctx, cfg.Paging.HotLimit)
	if err != nil {
		return fmt.Errorf("failed to load hot movies: %s", describeError(err))
	}
	if !slideshow || len(hot) == 0 {
		fmt.Print(formatter.FormatMovieList("🔥 Hot Movies", hot, nil))
		return nil
	}

	carousel := ui.NewCarousel(hot, cfg.Carousel.Interval, func(i int, m api.Movie) {
		fmt.Print(formatter.FormatSlide(m, i, len(hot)))
	})
	fmt.Print(formatter.FormatSlide(hot[0], 0, len(hot)))
	carousel.Start(ctx)
	defer carousel.Stop()

	<-ctx.Done()
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	current, err := authorize(guard.RouteViewerMovies)
	if err != nil {
		return err
	}
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	page, err := pages.NewMoviesPage(client, current, pages.MoviesOptions{
		Limit:    cfg.Paging.MoviesLimit,
		HotLimit: cfg.Paging.HotLimit,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer page.Close()

	ctx := cmd.Context()
	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load movies: %s", describeError(err))
	}

	overlay, err := page.Overlay(id)
	for errors.Is(err, pages.ErrUnknownMovie) {
		issued, loadErr := page.LoadMore(ctx)
		if loadErr != nil {
			return fmt.Errorf("failed to load movies: %s", describeError(loadErr))
		}
		if !issued {
			return fmt.Errorf("movie #%d not found", id)
		}
		overlay, err = page.Overlay(id)
	}
	if err != nil {
		return err
	}

	rating, err := client.GetRating(ctx, current.UserID, id)
	if err != nil {
		logger.Warn().Err(err).Int64("movie_id", id).Msg("Failed to load rating")
	}
	value := 0
	if rating != nil {
		value = *rating
	}
	overlay.Rating = ui.NewStarRating(value, true, nil)

	fmt.Print(overlay.Render())
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	current, err := authorize(guard.RouteViewerMovies)
	if err != nil {
		return err
	}
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	page, err := pages.NewMoviesPage(client, current, pages.MoviesOptions{
		Limit:    cfg.Paging.MoviesLimit,
		HotLimit: cfg.Paging.HotLimit,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer page.Close()

	ctx := cmd.Context()
	if err := page.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load movies: %s", describeError(err))
	}

	if page.IsWatched(id) {
		fmt.Printf("✓ #%d is already watched\n", id)
		return nil
	}
	if err := page.MarkWatched(ctx, id); err != nil {
		return fmt.Errorf("failed to mark #%d as watched: %s", id, describeError(err))
	}
	fmt.Printf("✓ Marked #%d as watched\n", id)
	return nil
}

// loadRemaining loads the pages requested by --pages or --all after the
// first one
func loadRemaining(ctx context.Context, list paginate.Appender) error {
	if loadAll {
		trigger := paginate.NewPollingTrigger(pollInterval, func() bool { return true })
		defer trigger.Stop()
		return paginate.Drive(ctx, list, trigger)
	}

	for i := 1; i < pageCount; i++ {
		issued, err := list.LoadMore(ctx)
		if err != nil {
			return err
		}
		if !issued {
			break
		}
	}
	return nil
}

func printSubjects(title string, subjects []filter.Subject) {
	movies := make([]api.Movie, len(subjects))
	watched := make(map[int64]bool)
	for i, s := range subjects {
		movies[i] = s.Movie
		if s.Watched {
			watched[s.Movie.ID] = true
		}
	}
	fmt.Print(formatter.FormatMovieList(title, movies, watched))
}
