// Command sigscan searches a module dump for byte signatures.
package main

func main() {
	execute()
}
