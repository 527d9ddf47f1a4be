// Package slotkv provides a client for interacting with a slotkv server
// over TCP.
//
// Example:
//
//	client, err := slotkv.Connect()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	_, err = client.Create("foo", `{"name":"bar"}`, 30*time.Second)
//	val, err := client.Read("foo")
package slotkv
