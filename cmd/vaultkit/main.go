// Package main is the entry point for vaultkit.
package main

func main() {
	Execute()
}
