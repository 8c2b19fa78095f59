package main

import "github.com/andresmejia3/goober/cmd"

func main() {
	cmd.Execute()
}
