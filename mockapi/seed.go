package mockapi

func seedUsers() []userRecord {
	return []userRecord{
		{ID: 1, Username: "admin", Password: "admin123", Name: "Administrator", Role: "admin"},
		{ID: 2, Username: "viewer", Password: "viewer123", Name: "Alice Viewer", Role: "viewer"},
		{ID: 3, Username: "bob", Password: "viewer123", Name: "Bob", Role: "viewer"},
	}
}

func seedMovies() []movieRecord {
	type seed struct {
		title  string
		year   int
		rating float64
		genres []string
	}
	seeds := []seed{
		{"The Shawshank Redemption", 1994, 9.3, []string{"Drama"}},
		{"The Godfather", 1972, 9.2, []string{"Crime", "Drama"}},
		{"The Dark Knight", 2008, 9.0, []string{"Action", "Crime", "Drama"}},
		{"Pulp Fiction", 1994, 8.9, []string{"Crime", "Drama"}},
		{"Inception", 2010, 8.8, []string{"Action", "Sci-Fi", "Thriller"}},
		{"Fight Club", 1999, 8.8, []string{"Drama"}},
		{"Forrest Gump", 1994, 8.8, []string{"Drama", "Romance"}},
		{"The Matrix", 1999, 8.7, []string{"Action", "Sci-Fi"}},
		{"Goodfellas", 1990, 8.7, []string{"Crime", "Drama"}},
		{"Interstellar", 2014, 8.7, []string{"Adventure", "Drama", "Sci-Fi"}},
		{"Se7en", 1995, 8.6, []string{"Crime", "Mystery", "Thriller"}},
		{"Spirited Away", 2001, 8.6, []string{"Animation", "Fantasy"}},
		{"Parasite", 2019, 8.5, []string{"Drama", "Thriller"}},
		{"The Silence of the Lambs", 1991, 8.6, []string{"Crime", "Thriller"}},
		{"Whiplash", 2014, 8.5, []string{"Drama", "Music"}},
		{"The Prestige", 2006, 8.5, []string{"Drama", "Mystery", "Sci-Fi"}},
		{"Gladiator", 2000, 8.5, []string{"Action", "Adventure", "Drama"}},
		{"The Departed", 2006, 8.5, []string{"Crime", "Thriller"}},
		{"Alien", 1979, 8.5, []string{"Horror", "Sci-Fi"}},
		{"The Lion King", 1994, 8.5, []string{"Animation", "Adventure"}},
		{"Back to the Future", 1985, 8.5, []string{"Adventure", "Comedy", "Sci-Fi"}},
		{"Casablanca", 1942, 8.5, []string{"Drama", "Romance"}},
		{"WALL-E", 2008, 8.4, []string{"Animation", "Family", "Sci-Fi"}},
		{"Coco", 2017, 8.4, []string{"Animation", "Family", "Music"}},
		{"Amelie", 2001, 8.3, []string{"Comedy", "Romance"}},
		{"Up", 2009, 8.3, []string{"Animation", "Adventure", "Comedy"}},
		{"Heat", 1995, 8.3, []string{"Action", "Crime", "Thriller"}},
		{"The Shining", 1980, 8.4, []string{"Horror", "Drama"}},
		{"Mad Max: Fury Road", 2015, 8.1, []string{"Action", "Adventure"}},
		{"Get Out", 2017, 7.8, []string{"Horror", "Mystery", "Thriller"}},
		{"La La Land", 2016, 8.0, []string{"Comedy", "Drama", "Music"}},
		{"Arrival", 2016, 7.9, []string{"Drama", "Mystery", "Sci-Fi"}},
		{"The Grand Budapest Hotel", 2014, 8.1, []string{"Adventure", "Comedy"}},
		{"Jaws", 1975, 8.1, []string{"Adventure", "Thriller"}},
		{"Toy Story", 1995, 8.3, []string{"Animation", "Comedy", "Family"}},
	}

	movies := make([]movieRecord, 0, len(seeds))
	for i, s := range seeds {
		movies = append(movies, movieRecord{
			ID:     int64(i + 1),
			Title:  s.title,
			Year:   s.year,
			Rating: s.rating,
			Genres: s.genres,
		})
	}
	// a few entries carry a synopsis; the rest fall back to generated text
	movies[0].Description = "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency."
	movies[4].Description = "A thief who steals corporate secrets through dream-sharing technology is given the inverse task of planting an idea."
	movies[7].Description = "A computer hacker learns about the true nature of his reality and his role in the war against its controllers."
	return movies
}
