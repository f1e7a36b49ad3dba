// Idler - idle cloud resource inventory.
// List. Review. Delete.
package main

func main() {
	Execute()
}
