package main

import "github.com/KaramelBytes/effluent-cli/cmd"

func main() {
	cmd.Execute()
}
