// Package server accepts RESP client connections and executes their
// commands against the shared store.
//
// Each connection runs on its own goroutine and handles one request at a
// time: read a frame, parse it into a command, execute it, write and
// flush the reply. Malformed frames, syntax errors and unimplemented
// requests are answered with an error reply and the connection keeps
// going; I/O failures end only the affected connection.
//
// Basic usage:
//
//	exec := server.NewExecutor(storage.NewMemory(), info)
//	srv := server.NewServer(":6379", exec)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
//
// The server is compatible with Redis clients like
// github.com/redis/go-redis for the supported commands: PING, ECHO, GET,
// SET, INFO replication, COMMAND, REPLCONF and PSYNC.
package server
