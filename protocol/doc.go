// Package protocol implements the Redis Serialization Protocol (RESP)
// frame codec used by both the server and the replication handshake.
//
// Decoding is streaming: the Reader consumes exactly the bytes of one
// frame from a buffered stream that may deliver data in arbitrary pieces.
// Encoding is buffered: the Writer accumulates a whole reply and sends it
// on Flush.
//
// Basic usage:
//
//	reader := protocol.NewReader(conn)
//	writer := protocol.NewWriter(conn)
//	for {
//		frame, err := reader.ReadFrame()
//		if err == io.EOF {
//			return // peer closed between frames
//		}
//		if err != nil {
//			return err
//		}
//		writer.WriteFrame(reply(frame))
//		writer.Flush()
//	}
//
// The supported frame types are:
//   - Simple strings (+)
//   - Errors (-)
//   - Unsigned integers (:)
//   - Bulk strings ($), including the null bulk string ($-1)
//   - Arrays (*) of the scalar types above
package protocol
