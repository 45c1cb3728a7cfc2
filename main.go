package main

import "github.com/meysamhadeli/astview/cmd"

func main() {
	cmd.Execute()
}
