// Package standings ranks the roster airlines and projects when the reference
// airline will overtake each larger competitor.
//
// projection.go holds the pure calculations: trailing 30-day rates, the
// days-to-overtake projection, duration formatting, sorting and the display
// policy filter. rank.go compares positions with the previous run through a
// RankStore. service.go wires fetching, ranking, rendering and delivery into a
// single mutually exclusive update run.
package standings
