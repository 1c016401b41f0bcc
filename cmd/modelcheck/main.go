package main

import "github.com/MeKo-Tech/modelcheck/cmd/modelcheck/cmd"

func main() {
	cmd.Execute()
}
