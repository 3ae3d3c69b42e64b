package main

import "github.com/inovacc/recstore/cmd"

func main() {
	cmd.Execute()
}
