// Package schedule plans backdated commits over a calendar range.
//
// Walker enumerates the days of the range lazily, optionally dropping
// weekends before any activation decision is made. Planner decides per
// day whether commits happen, how many, and at what second of the day,
// using an injectable uniform random source so tests can substitute a
// fixed sequence.
package schedule
