/*
Package main is the entry point of the booking chat server.

The default command (and "serve") loads configuration, initializes logging, wires the
message store, the chat core and the HTTP server, and runs until SIGINT or SIGTERM,
then shuts down gracefully. "migrate" runs goose commands against the message database.
*/
package main

func main() {
	Execute()
}
