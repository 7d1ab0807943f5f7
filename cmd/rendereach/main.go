package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(newApp())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}
