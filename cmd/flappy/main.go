package main

import "github.com/flappy-build/flappy/cmd/flappy/internal"

func main() {
	internal.Execute()
}
