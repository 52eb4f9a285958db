// Command clmath is the calculator's command-line entry point.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
