// Command brokectl inspects and edits the budget records from a terminal.
// It works on the same SQLite database as the server.
package main

func main() {
	Execute()
}
