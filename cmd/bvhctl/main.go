package main

import (
	"github.com/lange-studios/gobvh/cmd/bvhctl/cmd"
)

func main() {
	cmd.Execute()
}
