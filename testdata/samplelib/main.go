package main

/*
#include <stdint.h>
*/
import "C"

//export LdfindSample
func LdfindSample() C.int {
	return 42
}

func main() {}
