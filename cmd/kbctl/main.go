package main

import "github.com/kirillkom/hybrid-rag/internal/cli"

func main() {
	cli.Execute()
}
