package errs

import "net/http"

// errorMap holds the template for every code. Status is only meaningful for HTTP responses;
// zero means 200 with an error code in the body.
var errorMap = map[int]CustomError{
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many connection attempts. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUpgradeFailed:     {Code: ErrUpgradeFailed, Message: "Websocket upgrade failed.", Status: http.StatusBadRequest},

	ErrMalformedEvent:        {Code: ErrMalformedEvent, Message: "Malformed event."},
	ErrUnknownEvent:          {Code: ErrUnknownEvent, Message: "Unknown event %q."},
	ErrRoomIDRequired:        {Code: ErrRoomIDRequired, Message: "Booking id is required."},
	ErrContentRequired:       {Code: ErrContentRequired, Message: "Message content is required."},
	ErrSenderRequired:        {Code: ErrSenderRequired, Message: "Sender id is required."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is longer than %d bytes."},

	ErrConnectionUnknown: {Code: ErrConnectionUnknown, Message: "Connection is not registered."},
	ErrSlowConsumer:      {Code: ErrSlowConsumer, Message: "Connection send queue is full."},

	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistFailed:    {Code: ErrPersistFailed, Message: "Message could not be stored."},
	ErrPersistQueueFull: {Code: ErrPersistQueueFull, Message: "Message store queue is full."},
}
