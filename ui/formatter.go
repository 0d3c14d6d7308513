package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/s0up4200/reelpick/api"
)

const chartWidth = 40

// ConsoleFormatter renders lists for the terminal
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatMovieList formats a movie grid. watched may be nil.
func (f *ConsoleFormatter) FormatMovieList(title string, movies []api.Movie, watched map[int64]bool) string {
	if len(movies) == 0 {
		return "No movies found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d):\n\n", title, len(movies))

	for i, m := range movies {
		isLast := i == len(movies)-1
		prefix := "├"
		indent := "│   "
		if isLast {
			prefix = "╰"
			indent = "    "
		}

		fmt.Fprintf(&sb, "%s── %s (%d) #%d", prefix, m.Title, m.Year, m.ID)
		if watched[m.ID] {
			sb.WriteString("  ✓ Watched")
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s⭐ %s/10", indent, FormatRating(m.Rating))
		if len(m.Genres) > 0 {
			fmt.Fprintf(&sb, " | %s", strings.Join(m.Genres, ", "))
		}
		sb.WriteString("\n")

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatSlide formats the current carousel slide
func (f *ConsoleFormatter) FormatSlide(m api.Movie, index, total int) string {
	var sb strings.Builder
	sb.WriteString("🔥 Hot Movies\n")
	fmt.Fprintf(&sb, "‹  %s  ›\n", m.Title)
	fmt.Fprintf(&sb, "   %d  ⭐ %s/10", m.Year, FormatRating(m.Rating))
	if len(m.Genres) > 0 {
		fmt.Fprintf(&sb, "  %s", strings.Join(m.Genres, " · "))
	}
	sb.WriteString("\n   ")
	for i := range total {
		if i == index {
			sb.WriteString("●")
		} else {
			sb.WriteString("○")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatHistory formats a user's watch history as a table
func (f *ConsoleFormatter) FormatHistory(entries []api.WatchHistoryEntry) string {
	if len(entries) == 0 {
		return "No watch history for this user"
	}

	titleWidth := len("Movie")
	for _, e := range entries {
		titleWidth = max(titleWidth, len(historyTitle(e)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%-*s  %-30s  %s\n", titleWidth, "Movie", "Genres", "Watched At")
	fmt.Fprintf(&sb, "%s  %s  %s\n", strings.Repeat("─", titleWidth), strings.Repeat("─", 30), strings.Repeat("─", 16))
	for _, e := range entries {
		watched := "-"
		if !e.WatchedAt.IsZero() {
			watched = e.WatchedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&sb, "%-*s  %-30s  %s\n", titleWidth, historyTitle(e), truncate(strings.Join(e.Genres, ", "), 30), watched)
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatGenreChart formats genre preferences as a horizontal bar chart
func (f *ConsoleFormatter) FormatGenreChart(prefs []api.GenrePreference) string {
	if len(prefs) == 0 {
		return "No viewing data for this user"
	}

	labelWidth := 0
	for _, p := range prefs {
		labelWidth = max(labelWidth, len(p.Genre))
	}

	widths := BarWidths(prefs)
	var sb strings.Builder
	sb.WriteString("\n")
	for i, p := range prefs {
		cells := int(math.Round(widths[i] / 100 * chartWidth))
		fmt.Fprintf(&sb, "%-*s  %s%s  %d movies\n",
			labelWidth, p.Genre,
			strings.Repeat("█", cells), strings.Repeat("░", chartWidth-cells),
			p.Count)
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatUsers lists accounts with their roles
func (f *ConsoleFormatter) FormatUsers(users []api.User) string {
	if len(users) == 0 {
		return "No users found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nUsers (%d):\n\n", len(users))
	for i, u := range users {
		prefix := "├"
		if i == len(users)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── #%d %s (%s) [%s]\n", prefix, u.ID, u.GetDisplayName(), u.Username, u.Role)
	}
	sb.WriteString("\n")
	return sb.String()
}

// BarWidths returns each preference's bar width as a percentage of the
// largest count
func BarWidths(prefs []api.GenrePreference) []float64 {
	widths := make([]float64, len(prefs))
	maxCount := 0
	for _, p := range prefs {
		maxCount = max(maxCount, p.Count)
	}
	if maxCount == 0 {
		return widths
	}
	for i, p := range prefs {
		widths[i] = float64(p.Count) / float64(maxCount) * 100
	}
	return widths
}

func historyTitle(e api.WatchHistoryEntry) string {
	if e.MovieTitle != "" {
		return e.MovieTitle
	}
	return fmt.Sprintf("Movie #%d", e.MovieID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
