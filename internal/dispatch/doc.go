// Package dispatch exposes the mailslot registry over a line-oriented
// TCP protocol. A connection plays the role a file handle plays for a
// character device: the index given to OPEN is bound to the session the
// way a minor number is bound at open time.
//
// # Protocol
//
// Commands are single lines, terminated by LF (a trailing CR is
// stripped). Verbs are case-insensitive. Responses start with "+OK" or
// "-ERR".
//
//	OPEN <index>            bind the session to a mailslot (first opener wins)
//	WRITE <index> <payload> push the payload as one message
//	READ <index>            pop one message: "+OK <n> <payload>", or
//	                        "+OK 0 no message to read" when empty
//	STAT <index>            report "<occupied> <capacity>" for any mailslot
//	CLEAR <index>           discard the bound mailslot's stored messages
//	QUIT                    release and disconnect
//
// A session must OPEN a mailslot before WRITE, READ, or CLEAR, and those
// commands must name the bound index. This open-before-use rule lives
// here in the dispatch layer; the registry itself only requires the
// per-mailslot guard. Closing the connection, with or without QUIT,
// releases the bound mailslot, the way closing a device file releases
// its claim.
package dispatch
