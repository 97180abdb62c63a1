// Package codec is the boundary between the zip engines and the zip container
// format. Reading is exposed as a pull-based iterator over archive entries;
// writing collects records that are streamed into a zip.Writer on Flush.
package codec
