package mailslot

// Default sizing: 256 mailslots of 256 messages of 256 bytes each, the
// classic mailslot device geometry.
const (
	// DefaultInstances is the default number of mailslots in a registry.
	DefaultInstances = 256

	// DefaultCapacity is the default number of messages one mailslot holds.
	DefaultCapacity = 256

	// DefaultMessageSize is the default maximum message size in bytes.
	DefaultMessageSize = 256
)

// PopOrder selects which stored message Read returns.
type PopOrder string

const (
	// OrderLIFO returns the most recently pushed message (the default).
	OrderLIFO PopOrder = "lifo"

	// OrderFIFO returns the oldest stored message.
	OrderFIFO PopOrder = "fifo"
)

// Valid reports whether the pop order is a known value.
func (o PopOrder) Valid() bool {
	return o == OrderLIFO || o == OrderFIFO
}

// Stats is a point-in-time snapshot of registry-wide counters.
type Stats struct {
	Instances   int // Number of mailslots
	Capacity    int // Messages per mailslot
	MessageSize int // Maximum message size in bytes
	OpenCount   int // Mailslots currently held by an opener
	Messages    int // Total stored messages across all mailslots
}

// MailslotStat describes one mailslot's state within a snapshot.
type MailslotStat struct {
	Index    int  // Mailslot index
	Opened   bool // Whether an opener currently holds the mailslot
	Occupied int  // Stored message count
}
