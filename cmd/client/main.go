package main

import "ordbank/cmd/client/cmd"

func main() {
	cmd.Execute()
}
