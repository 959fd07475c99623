/*
Package errs provides the application error type and its numeric code constants.

Codes identify why an inbound event or HTTP request was refused. The realtime path
never sends them to clients; they are logged and counted. HTTP endpoints render them
through the resp package.
*/
package errs

// 1xxx: request and transport errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the caller exceeded the connection rate for its IP.
	ErrRateLimitExceeded = 1007

	// ErrUpgradeFailed indicates that the websocket handshake could not be completed.
	ErrUpgradeFailed = 1101
)

// 2xxx: inbound event errors
const (
	// ErrMalformedEvent indicates that a frame is not a valid JSON event envelope or payload.
	ErrMalformedEvent = 2001

	// ErrUnknownEvent indicates that the envelope names an event this server does not handle.
	ErrUnknownEvent = 2002

	// ErrRoomIDRequired indicates that the booking id of an event is missing or empty.
	ErrRoomIDRequired = 2101

	// ErrContentRequired indicates that a send_message event carries no content.
	ErrContentRequired = 2201

	// ErrSenderRequired indicates that a send_message event carries no sender id.
	ErrSenderRequired = 2202

	// ErrMessageContentTooLong indicates that message content exceeds the configured limit.
	ErrMessageContentTooLong = 2203
)

// 3xxx: connection state errors
const (
	// ErrConnectionUnknown indicates an operation on a connection that is not (or no longer) registered.
	ErrConnectionUnknown = 3001

	// ErrSlowConsumer indicates that a connection's send queue was full and the connection was dropped.
	ErrSlowConsumer = 3002
)

// 5xxx: internal errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrPersistFailed indicates that a message could not be written to the message store.
	ErrPersistFailed = 5101

	// ErrPersistQueueFull indicates that the persistence queue was full and a message was dropped.
	ErrPersistQueueFull = 5102
)
