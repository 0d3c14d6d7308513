package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/s0up4200/reelpick/api"
)

// DetailOverlay is the detail view of one movie
type DetailOverlay struct {
	Movie api.Movie

	// ShowWatchAction offers "Mark as Watched" (or the watched indicator).
	ShowWatchAction bool
	Watched         bool

	// Rating is nil when the view has no rating widget.
	Rating *StarRating
}

// CanMarkWatched reports whether the watch action is enabled
func (o *DetailOverlay) CanMarkWatched() bool {
	return o.ShowWatchAction && !o.Watched
}

// Description returns the movie synopsis or a generated one
func (o *DetailOverlay) Description() string {
	if o.Movie.Description != "" {
		return o.Movie.Description
	}

	genre := "film"
	if g := o.Movie.PrimaryGenre(); g != "" {
		genre = strings.ToLower(g)
	}
	return fmt.Sprintf("%s is a critically acclaimed %s film released in %d. "+
		"With an impressive rating of %s/10, this movie has captivated audiences worldwide "+
		"with its compelling storytelling and outstanding performances.",
		o.Movie.Title, genre, o.Movie.Year, FormatRating(o.Movie.Rating))
}

// Render draws the overlay
func (o *DetailOverlay) Render() string {
	m := o.Movie
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s\n", m.Title)
	fmt.Fprintf(&sb, "%d  ⭐ %s/10\n", m.Year, FormatRating(m.Rating))
	if len(m.Genres) > 0 {
		fmt.Fprintf(&sb, "[%s]\n", strings.Join(m.Genres, "] ["))
	}

	sb.WriteString("\nDescription\n")
	sb.WriteString(wrap(o.Description(), 72, "  "))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "├── Release Year: %d\n", m.Year)
	fmt.Fprintf(&sb, "├── Rating: %s/10\n", FormatRating(m.Rating))
	fmt.Fprintf(&sb, "╰── Genres: %d\n", len(m.Genres))

	if o.ShowWatchAction {
		if o.Watched {
			sb.WriteString("\n✓ Already Watched\n")
		} else {
			sb.WriteString("\n[ Mark as Watched ]\n")
		}
	}
	if o.Rating != nil {
		sb.WriteString("\n")
		sb.WriteString(o.Rating.Render())
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatRating prints a /10 rating without trailing zeros
func FormatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func wrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	line := indent
	for _, w := range words {
		if len(line) > len(indent) && len(line)+1+len(w) > width {
			sb.WriteString(line)
			sb.WriteString("\n")
			line = indent
		}
		if len(line) > len(indent) {
			line += " "
		}
		line += w
	}
	sb.WriteString(line)
	sb.WriteString("\n")
	return sb.String()
}
