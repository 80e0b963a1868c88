package main

import "github.com/jarvis4everyone/jarvis-backend/cmd"

func main() {
	cmd.Execute()
}
