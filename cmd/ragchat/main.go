package main

import "github.com/kailas-cloud/ragchat/internal/cli"

func main() {
	cli.Execute()
}
