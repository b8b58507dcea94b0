package main

import "github.com/oshokin/guardian/cmd/guardian-sandbox/cmd"

func main() {
	cmd.Execute()
}
