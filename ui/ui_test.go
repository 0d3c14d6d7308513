package ui

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelpick/api"
)

func TestCarouselWraps(t *testing.T) {
	var seen []int
	c := NewCarousel([]string{"a", "b", "c"}, 0, func(i int, _ string) { seen = append(seen, i) })

	c.Next()
	c.Next()
	c.Next()
	assert.Equal(t, 0, c.Index())

	c.Prev()
	assert.Equal(t, 2, c.Index())
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "c", cur)

	require.NoError(t, c.Select(1))
	assert.Error(t, c.Select(3))
	assert.Error(t, c.Select(-1))

	assert.Equal(t, []int{1, 2, 0, 2, 1}, seen)
}

func TestCarouselAutoAdvance(t *testing.T) {
	var ticks atomic.Int32
	c := NewCarousel([]int{10, 20}, 5*time.Millisecond, func(int, int) { ticks.Add(1) })
	c.Start(context.Background())
	defer c.Stop()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	// manual moves leave the timer running
	c.Next()
	c.Prev()
	require.NoError(t, c.Select(0))
	assert.True(t, c.Running())

	before := ticks.Load()
	require.Eventually(t, func() bool { return ticks.Load() > before+1 }, time.Second, time.Millisecond)
}

func TestCarouselStop(t *testing.T) {
	var ticks atomic.Int32
	c := NewCarousel([]int{1, 2, 3}, 2*time.Millisecond, func(int, int) { ticks.Add(1) })
	c.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())

	time.Sleep(10 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load())

	// a stopped carousel cannot be restarted
	c.Start(context.Background())
	assert.False(t, c.Running())
}

func TestCarouselStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCarousel([]int{1, 2}, time.Millisecond, nil)
	c.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return !c.Running() }, time.Second, time.Millisecond)
}

func TestEmptyCarousel(t *testing.T) {
	var calls int
	c := NewCarousel[int](nil, time.Millisecond, func(int, int) { calls++ })
	c.Start(context.Background())
	defer c.Stop()

	assert.False(t, c.Running())
	c.Next()
	c.Prev()
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Zero(t, calls)
	assert.Equal(t, DefaultCarouselInterval, NewCarousel([]int{1}, 0, nil).interval)
}

func TestStarRatingDisplayPrefersHover(t *testing.T) {
	var clicked []int
	r := NewStarRating(2, false, func(n int) { clicked = append(clicked, n) })

	assert.Equal(t, 2, r.Display())
	r.Hover(4)
	assert.Equal(t, 4, r.Display())
	assert.Equal(t, 2, r.Value())

	assert.True(t, r.Click(4))
	assert.Equal(t, []int{4}, clicked)
	assert.Equal(t, 2, r.Value(), "click does not commit")

	r.SetValue(4)
	r.Leave()
	assert.Equal(t, 4, r.Display())
	assert.Equal(t, "Your Rating: ★★★★☆ 4/5", r.Render())

	assert.False(t, r.Click(0))
	assert.False(t, r.Click(6))
}

func TestStarRatingConcurrentUse(t *testing.T) {
	var r *StarRating
	r = NewStarRating(0, false, func(n int) { r.SetValue(n) })

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.Click(i)
		}()
		go func() {
			defer wg.Done()
			r.Hover(i)
			r.Leave()
		}()
		go func() {
			defer wg.Done()
			_ = r.Render()
			_ = r.Display()
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, r.Value(), 1)
	assert.LessOrEqual(t, r.Value(), 5)
	assert.Equal(t, r.Value(), r.Display())
}

func TestStarRatingReadOnly(t *testing.T) {
	called := false
	r := NewStarRating(3, true, func(int) { called = true })

	r.Hover(5)
	assert.Equal(t, 3, r.Display())
	assert.False(t, r.Click(5))
	assert.False(t, called)

	unrated := NewStarRating(0, false, nil)
	assert.Equal(t, "Your Rating: ☆☆☆☆☆", unrated.Render())
	assert.False(t, unrated.Click(3), "no callback")
}

func TestOverlayDescriptionFallback(t *testing.T) {
	o := &DetailOverlay{Movie: api.Movie{Title: "Heat", Year: 1995, Rating: 8.3, Genres: []string{"Action", "Crime"}}}
	assert.Equal(t,
		"Heat is a critically acclaimed action film released in 1995. With an impressive rating of 8.3/10, "+
			"this movie has captivated audiences worldwide with its compelling storytelling and outstanding performances.",
		o.Description())

	o.Movie.Genres = nil
	o.Movie.Rating = 0
	assert.True(t, strings.HasPrefix(o.Description(), "Heat is a critically acclaimed film film released in 1995. With an impressive rating of 0/10"))

	o.Movie.Description = "Cops and robbers."
	assert.Equal(t, "Cops and robbers.", o.Description())
}

func TestOverlayWatchAction(t *testing.T) {
	o := &DetailOverlay{Movie: api.Movie{ID: 1, Title: "Up", Year: 2009, Rating: 8.3}}
	assert.False(t, o.CanMarkWatched())
	assert.NotContains(t, o.Render(), "Mark as Watched")

	o.ShowWatchAction = true
	assert.True(t, o.CanMarkWatched())
	assert.Contains(t, o.Render(), "[ Mark as Watched ]")

	o.Watched = true
	assert.False(t, o.CanMarkWatched())
	assert.Contains(t, o.Render(), "✓ Already Watched")
}

func TestOverlayShowsCommittedRating(t *testing.T) {
	o := &DetailOverlay{
		Movie:  api.Movie{ID: 1, Title: "Up", Year: 2009, Rating: 8.3},
		Rating: NewStarRating(4, false, nil),
	}
	out := o.Render()
	assert.Contains(t, out, "★★★★☆ 4/5")
	assert.Contains(t, out, "├── Rating: 8.3/10")
	assert.Contains(t, out, "╰── Genres: 0")
}

func TestBarWidths(t *testing.T) {
	prefs := []api.GenrePreference{{Genre: "Drama", Count: 4}, {Genre: "Crime", Count: 2}, {Genre: "Music", Count: 1}}
	assert.Equal(t, []float64{100, 50, 25}, BarWidths(prefs))
	assert.Empty(t, BarWidths(nil))
	assert.Equal(t, []float64{0}, BarWidths([]api.GenrePreference{{Genre: "X"}}))
}

func TestFormatGenreChart(t *testing.T) {
	f := NewConsoleFormatter()
	out := f.FormatGenreChart([]api.GenrePreference{{Genre: "Drama", Count: 4}, {Genre: "Crime", Count: 2}})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, chartWidth, strings.Count(lines[0], "█"))
	assert.Equal(t, chartWidth/2, strings.Count(lines[1], "█"))
	assert.Contains(t, lines[1], "2 movies")

	assert.Equal(t, "No viewing data for this user", f.FormatGenreChart(nil))
}

func TestFormatMovieList(t *testing.T) {
	f := NewConsoleFormatter()
	movies := []api.Movie{
		{ID: 1, Title: "Alien", Year: 1979, Rating: 8.5, Genres: []string{"Horror", "Sci-Fi"}},
		{ID: 2, Title: "Jaws", Year: 1975, Rating: 8.1},
	}

	out := f.FormatMovieList("Movies", movies, map[int64]bool{2: true})
	assert.Contains(t, out, "Movies (2):")
	assert.Contains(t, out, "├── Alien (1979) #1\n")
	assert.Contains(t, out, "╰── Jaws (1975) #2  ✓ Watched")
	assert.Contains(t, out, "⭐ 8.5/10 | Horror, Sci-Fi")

	assert.Equal(t, "No movies found", f.FormatMovieList("Movies", nil, nil))
}

func TestFormatHistory(t *testing.T) {
	f := NewConsoleFormatter()
	out := f.FormatHistory([]api.WatchHistoryEntry{
		{MovieID: 5, MovieTitle: "Inception", Genres: []string{"Action"}, WatchedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.Local)},
		{MovieID: 9},
	})
	assert.Contains(t, out, "Inception")
	assert.Contains(t, out, "2025-01-02 03:04")
	assert.Contains(t, out, "Movie #9")

	assert.Equal(t, "No watch history for this user", f.FormatHistory(nil))
}

func TestFormatSlideAndUsers(t *testing.T) {
	f := NewConsoleFormatter()
	slide := f.FormatSlide(api.Movie{Title: "Coco", Year: 2017, Rating: 8.4}, 1, 3)
	assert.Contains(t, slide, "‹  Coco  ›")
	assert.Contains(t, slide, "○●○")

	users := f.FormatUsers([]api.User{{ID: 1, Username: "admin", Role: api.RoleAdmin}})
	assert.Contains(t, users, "╰── #1 admin (admin) [admin]")
}

func TestViewport(t *testing.T) {
	v := NewViewport(5)
	v.SetTotal(20)

	assert.False(t, v.NearEnd(2))
	v.Scroll(100)
	assert.Equal(t, 15, v.ScrollOffset())
	assert.True(t, v.NearEnd(0))

	start, end := v.Visible()
	assert.Equal(t, 15, start)
	assert.Equal(t, 20, end)

	v.SetTotal(40)
	assert.Equal(t, 15, v.ScrollOffset())
	assert.False(t, v.NearEnd(2))

	v.RestoreScroll(-4)
	assert.Equal(t, 0, v.ScrollOffset())
	v.Scroll(13)
	assert.True(t, v.NearEnd(25))
}
