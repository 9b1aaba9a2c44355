// Package mediatypes provides shared type definitions for media file
// handling: file type detection by extension, MIME types, and the
// extension-to-container guesses used when a catalog record was never
// probed.
//
// This package is a dependency-free foundation that can be imported by
// other packages without creating import cycles.
package mediatypes
