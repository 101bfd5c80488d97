// chatlog - Chat Transcript Reconstruction Tool
//
// chatlog reads exported chat transcripts, classifies each line as an entry
// start or a continuation, and rebuilds the messages with their date, time,
// author and text.
package main

import (
	"os"

	"github.com/ccollicutt/chatlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
