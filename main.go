// The main package for the placescraper executable.
package main

import (
	"github.com/JakeFAU/placescraper/cmd"
)

func main() {
	cmd.Execute()
}
