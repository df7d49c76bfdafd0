// Command tagger classifies web pages by topic.
package main

import (
	"github.com/JakeFAU/page-tagger/cmd"
)

func main() {
	cmd.Execute()
}
