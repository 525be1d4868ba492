package main

import "github.com/fjod/cats-den/internal/cmd"

func main() {
	cmd.Execute()
}
