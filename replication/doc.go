// Package replication implements the replica side of the primary/replica
// handshake and the replication identity reported by INFO.
//
// The handshake runs once, before a replica opens its own listener:
//   - PING, expecting +PONG
//   - REPLCONF listening-port <port>, expecting +OK
//   - REPLCONF capa psync2, expecting +OK
//   - PSYNC ? -1, expecting +FULLRESYNC <replid> <offset>
//
// Basic usage:
//
//	client := replication.NewClient("localhost:6379", 6380)
//	link, err := client.Connect(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer link.Close()
//
// Connect retries failed attempts with exponential backoff. No commands
// are streamed over the link after the handshake.
package replication
