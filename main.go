package main

import "scrim-booking/cmd"

func main() {
	cmd.Execute()
}
