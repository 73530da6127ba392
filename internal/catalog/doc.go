// Package catalog reads target table shapes from the database catalog.
//
// Column order comes from information_schema.columns.ordinal_position and
// is authoritative: it fixes the staging relation's shape and the column
// order expected in source files.
package catalog
