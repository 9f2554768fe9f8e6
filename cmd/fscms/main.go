package main

import "github.com/aweris/fscms/cmd/fscms/cmd"

func main() {
	cmd.Execute()
}
