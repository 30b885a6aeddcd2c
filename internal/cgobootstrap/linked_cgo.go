//go:build linux && cgo

package cgobootstrap

const linked = true
