package main

import "github.com/telemacy/bridge-packager/cmd/bridge-packager/cmd"

func main() {
	cmd.Execute()
}
