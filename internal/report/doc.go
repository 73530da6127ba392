// Package report renders run, check and describe results as tables.
//
// Tables are written with go-pretty in one of three formats: a box-drawn
// table for terminals, Markdown for pasting into tickets, and CSV for
// scripts.
package report
