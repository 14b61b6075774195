package main

import "github.com/bryanchriswhite/FocusOverlay/cmd/focusoverlay/commands"

func main() {
	commands.Execute()
}
