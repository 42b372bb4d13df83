// Package prespec provides a client for querying a prespecialization lookup
// server over TCP.
//
// Example:
//
//	client, err := prespec.Connect(prespec.WithPort(7373))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	addr, ok, err := client.Lookup("Foo<Int>")
package prespec
