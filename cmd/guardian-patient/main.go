package main

import "github.com/oshokin/guardian/cmd/guardian-patient/cmd"

func main() {
	cmd.Execute()
}
