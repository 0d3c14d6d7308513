// Package ui contains the terminal presentation components: the hot movie
// carousel, the star rating widget, the movie detail overlay, a scroll
// viewport and the console formatter for lists, tables and charts.
//
// Components hold only view state. Anything that talks to the service
// lives in the pages package.
package ui
