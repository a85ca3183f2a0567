package main

import "github.com/oshokin/safeguardian/cmd/safetyctl/cmd"

func main() {
	cmd.Execute()
}
