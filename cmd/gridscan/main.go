// Command gridscan scans gridded datasets described by TOML definitions
// and loads parts of them.
package main

func main() {
	Execute()
}
