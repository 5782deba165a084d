package main

import "FretLab/cmd"

func main() {
	cmd.Execute()
}
