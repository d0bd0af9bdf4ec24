package main

import "github.com/Natulko/STCA-text-to-image-public/cmd"

func main() {
	cmd.Execute()
}
