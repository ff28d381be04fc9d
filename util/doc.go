// Package util provides small generic helpers shared by seqkit packages:
// pointer helpers for nullable values, slice dedup and env value cleanup.
package util
