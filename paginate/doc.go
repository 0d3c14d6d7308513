// Package paginate implements incremental loading of offset-paginated lists.
//
// A Controller owns one list: it fetches the first page, appends further
// pages on demand, de-duplicates by item identity and stops once the
// service reports no more data or returns an empty page. Append requests
// come from a Trigger (a "load more" key, a polling proximity check) fed
// through Drive.
//
// Basic usage:
//
//	c := paginate.New(fetchMovies, movieKey, paginate.Options[api.Movie]{Limit: 20})
//	defer c.Close()
//
//	if err := c.LoadInitial(ctx); err != nil {
//		return err
//	}
//	for c.State() == paginate.Ready {
//		if _, err := c.LoadMore(ctx); err != nil {
//			break
//		}
//	}
package paginate
