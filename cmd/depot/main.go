package main

import "github.com/dpml/depot/cmd/depot/internal"

func main() {
	internal.Execute()
}
