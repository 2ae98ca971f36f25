// Command hone refines prompts with a judge and a human in the loop.
package main

import "github.com/berth-dev/hone/internal/cli"

func main() {
	cli.Execute()
}
