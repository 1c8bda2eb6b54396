package main

import "adjanitor/cmd"

func main() {
	cmd.Execute()
}
