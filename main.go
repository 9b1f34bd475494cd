package main

import "github.com/nextlevelbuilder/lingorelay/cmd"

func main() {
	cmd.Execute()
}
