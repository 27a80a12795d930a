// Package respkv provides a small Redis-compatible key-value server that
// can run as a primary or as a replica of another respkv (or Redis)
// primary.
//
// A node keeps string values in memory with optional expiry and answers
// PING, ECHO, GET, SET (EX, PX, KEEPTTL), INFO replication, COMMAND,
// REPLCONF and PSYNC over RESP.
//
// Basic usage:
//
//	node, err := respkv.New(
//		respkv.WithAddr("127.0.0.1:6380"),
//		respkv.WithReplicaOf("localhost 6379"),
//		respkv.WithLogger(respkv.NewLogger("info", "text")),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer node.Close()
//
//	// Runs the handshake with the primary, then starts serving
//	if err := node.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// A replica refuses to start when the handshake keeps failing after the
// configured retries; it never runs as a disconnected primary.
package respkv
