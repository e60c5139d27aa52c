package main

import "github.com/Layr-Labs/ve-rewards/cmd"

func main() {
	cmd.Execute()
}
