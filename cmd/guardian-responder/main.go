package main

import "github.com/oshokin/guardian/cmd/guardian-responder/cmd"

func main() {
	cmd.Execute()
}
