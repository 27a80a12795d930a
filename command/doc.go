// Package command defines the supported command set and the grammar that
// maps a decoded request frame onto it.
//
//	frame, _ := reader.ReadFrame()
//	cmd, err := command.Parse(frame)
//	if err != nil {
//		// *command.SyntaxError, safe to send to the client
//	}
//	switch c := cmd.(type) {
//	case command.Get:
//		...
//	}
package command
