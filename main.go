// The main package for the localnews executable.
package main

import "github.com/JakeFAU/localnews/cmd"

func main() {
	cmd.Execute()
}
