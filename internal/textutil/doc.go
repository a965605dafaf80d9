// Package textutil provides filename and token sanitization helpers used when
// naming downloaded artifacts and temp files.
package textutil
