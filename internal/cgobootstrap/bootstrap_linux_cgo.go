//go:build linux && cgo

// Package cgobootstrap links libc into the importing binary so it carries
// PT_INTERP and a dynamic section, and is started by the system loader
// whose search behavior ldfind reports.
package cgobootstrap

/*
#include <stdlib.h>
*/
import "C"

var _ = C.int(0)
