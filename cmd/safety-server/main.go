package main

import "github.com/oshokin/safeguardian/cmd/safety-server/cmd"

func main() {
	cmd.Execute()
}
