package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrUnknownBackend   = fmt.Errorf("unknown history backend")
	ErrUnknownEvent     = fmt.Errorf("unknown inbound event")
	ErrSendBufferFull   = fmt.Errorf("connection send buffer full")
	ErrHistoryCorrupted = fmt.Errorf("history blob corrupted")
)
