package main

import "video-forge/cmd"

func main() {
	cmd.Execute()
}
