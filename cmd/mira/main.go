package main

import "github.com/diogo/mira/internal/commands"

func main() {
	commands.Execute()
}
