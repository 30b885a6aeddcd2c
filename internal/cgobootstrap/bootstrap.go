package cgobootstrap

// Linked reports whether the binary was built with the libc bootstrap.
func Linked() bool { return linked }
