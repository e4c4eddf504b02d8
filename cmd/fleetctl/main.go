// The fleetctl command provides a command-line interface for managing
// restaurant signage screens, commands, content and video walls.
package main

import "github.com/piragazh/feasto-signage/internal/fleetctl/cmd"

func main() {
	cmd.Execute()
}
