package main

import "github.com/prlab/prcrawl/cmd"

func main() {
	cmd.Execute()
}
