// Package quern contains the core components of Quern, an engine for concurrent
// extract/transform/load pipelines over tabular records. This root package defines
// the column-oriented Frame data model which every stage processor consumes and
// produces, as well as the pipeline Context and statistics sink they report into,
// and is an excellent overview of Quern's key concepts.
package quern
