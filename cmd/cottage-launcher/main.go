package main

import "github.com/WillHanighen/CottageLauncher/cmd/cottage-launcher/cmd"

func main() {
	cmd.Execute()
}
