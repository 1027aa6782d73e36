package main

import "github.com/mvp-joe/symgraph/internal/cli"

func main() {
	cli.Execute()
}
