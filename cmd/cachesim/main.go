// Command cachesim runs memory reference traces through a configurable
// cache model and reports hits, misses and memory traffic.
package main

import "github.com/sarchlab/cachesim/cmd/cachesim/cmd"

func main() {
	cmd.Execute()
}
