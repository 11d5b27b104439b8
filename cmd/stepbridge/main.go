package main

import "github.com/vietddude/stepbridge/internal/cli"

func main() {
	cli.Execute()
}
