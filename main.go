package main

import "github.com/xmjiao/jianpu-ly/cmd"

func main() {
	cmd.Execute()
}
